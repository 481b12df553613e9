// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the build and serve commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/docsite/internal/assets"
	"github.com/JakeFAU/docsite/internal/clock/system"
	"github.com/JakeFAU/docsite/internal/config"
	"github.com/JakeFAU/docsite/internal/convert"
	"github.com/JakeFAU/docsite/internal/crawler"
	"github.com/JakeFAU/docsite/internal/doclink"
	collyfetcher "github.com/JakeFAU/docsite/internal/fetcher/colly"
	hashsha "github.com/JakeFAU/docsite/internal/hash/sha256"
	"github.com/JakeFAU/docsite/internal/id/uuid"
	manifestpg "github.com/JakeFAU/docsite/internal/manifest/postgres"
	"github.com/JakeFAU/docsite/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/docsite/internal/publisher/pubsub"
	"github.com/JakeFAU/docsite/internal/site"
	"github.com/JakeFAU/docsite/internal/source/fixtures"
	googlesrc "github.com/JakeFAU/docsite/internal/source/google"
	"github.com/JakeFAU/docsite/internal/storage/gcs"
	"github.com/JakeFAU/docsite/internal/storage/local"
)

const staticObjectDir = "static"

// SiteStore receives pages, images and static files.
type SiteStore interface {
	assets.BlobStore
	crawler.BlobStore
}

type clearer interface {
	Clear(ctx context.Context) error
}

// App holds all the shared, long-lived services for the application.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    SiteStore
	engine   *crawler.Engine
	manifest *manifestpg.Store
	pub      *pubsubpublisher.Publisher
	closers  []func() error
}

// Options lets tests replace the external backends.
type Options struct {
	// Source overrides the configured document source.
	Source crawler.DocumentSource
	// Store overrides the configured site store.
	Store SiteStore
	// Fetcher overrides the image downloader.
	Fetcher assets.Fetcher
}

// New creates and initializes an App from cfg. It fails fast if any configured
// service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (a *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a = &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	logger.Info("initializing application services")

	source := opts.Source
	if source == nil {
		if source, err = a.newSource(ctx); err != nil {
			return nil, err
		}
	}

	a.store = opts.Store
	if a.store == nil {
		if a.store, err = a.newStore(ctx); err != nil {
			return nil, err
		}
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:   cfg.Assets.UserAgent,
			Timeout:     cfg.AssetTimeout(),
			MaxBodySize: cfg.Assets.MaxBytes,
			Limiter: ratelimit.New(ratelimit.Config{
				RequestsPerSecond: cfg.Assets.RequestsPerSecond,
				Burst:             cfg.Assets.Burst,
			}),
		})
	}
	localizer, err := assets.New(assets.Config{
		Dir:          cfg.Assets.Dir,
		URLPrefix:    cfg.Assets.URLPrefix,
		StaticPrefix: cfg.Assets.StaticPrefix,
	}, fetcher, a.store, hashsha.New(16), logger.Named("assets"))
	if err != nil {
		return nil, fmt.Errorf("init asset localizer: %w", err)
	}

	renderer, err := site.NewRenderer(cfg.Output.Template)
	if err != nil {
		return nil, fmt.Errorf("init page renderer: %w", err)
	}

	deps := crawler.Deps{
		Source:    source,
		Converter: convert.New(doclink.NewMatcher(cfg.Google.LinkHosts...), logger.Named("convert")),
		Renderer:  renderer,
		Store:     a.store,
		Images:    crawler.LocalizerFunc(func() crawler.ImageSession { return localizer.NewSession() }),
		Hasher:    hashsha.New(0),
		Clock:     system.New(nil),
		IDs:       uuid.New(),
	}
	if cfg.DB.DSN != "" {
		if err := a.initManifest(ctx); err != nil {
			return nil, err
		}
		deps.Manifest = a.manifest
	}
	if cfg.PubSub.TopicName != "" {
		if err := a.initPublisher(ctx); err != nil {
			return nil, err
		}
		deps.Publisher = a.pub
	}

	a.engine, err = crawler.New(deps, crawler.Config{
		RootID: cfg.RootDocID,
		Topic:  cfg.PubSub.TopicName,
	}, logger.Named("crawler"))
	if err != nil {
		return nil, fmt.Errorf("init crawler: %w", err)
	}

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) newSource(ctx context.Context) (crawler.DocumentSource, error) {
	switch a.cfg.Source.Kind {
	case config.SourceFixtures:
		a.logger.Info("using fixture documents", zap.String("dir", a.cfg.Source.FixturesDir))
		src, err := fixtures.New(a.cfg.Source.FixturesDir)
		if err != nil {
			return nil, fmt.Errorf("init fixtures source: %w", err)
		}
		return src, nil
	default:
		key, err := a.cfg.Google.ServiceAccountKey()
		if err != nil {
			return nil, err
		}
		src, err := googlesrc.NewFromServiceAccount(ctx, key, a.cfg.Google.UserAgent, a.logger.Named("google"))
		if err != nil {
			return nil, fmt.Errorf("init google source: %w", err)
		}
		return src, nil
	}
}

func (a *App) newStore(ctx context.Context) (SiteStore, error) {
	if a.cfg.Storage.GCSBucket != "" {
		a.logger.Info("publishing to GCS", zap.String("bucket", a.cfg.Storage.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.GCSBucket, Prefix: a.cfg.Storage.Prefix})
		if err != nil {
			return nil, fmt.Errorf("init gcs store: %w", err)
		}
		return store, nil
	}
	store, err := local.New(local.Config{BaseDir: a.cfg.Output.Dir})
	if err != nil {
		return nil, fmt.Errorf("init output dir: %w", err)
	}
	return store, nil
}

func (a *App) initManifest(ctx context.Context) error {
	store, err := manifestpg.New(ctx, manifestpg.Config{DSN: a.cfg.DB.DSN, Table: a.cfg.DB.Table})
	if err != nil {
		return fmt.Errorf("init manifest: %w", err)
	}
	a.manifest = store
	a.closers = append(a.closers, func() error { store.Close(); return nil })
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("init manifest: %w", err)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	a.pub = pubsubpublisher.New(client)
	a.closers = append(a.closers, func() error {
		a.pub.Stop()
		return client.Close()
	})
	return nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Engine returns the crawler.
func (a *App) Engine() *crawler.Engine {
	return a.engine
}

// StaticDirs lists the local directories the server reads static files from.
func (a *App) StaticDirs() []string {
	dirs := []string{a.cfg.Output.StaticDir}
	if a.cfg.Storage.GCSBucket == "" {
		dirs = append(dirs, filepath.Join(a.cfg.Output.Dir, staticObjectDir))
	}
	return dirs
}

// Build prepares the output tree and runs one crawl. The output directory is
// emptied first when output.clean is set, then the static directory is
// copied into it.
func (a *App) Build(ctx context.Context) (crawler.Summary, error) {
	if a.cfg.Output.Clean {
		if c, ok := a.store.(clearer); ok {
			if err := c.Clear(ctx); err != nil {
				return crawler.Summary{}, fmt.Errorf("clean output: %w", err)
			}
		}
	}
	if dir := strings.TrimSpace(a.cfg.Output.StaticDir); dir != "" {
		n, err := site.CopyDir(ctx, dir, a.store, staticObjectDir)
		if err != nil {
			return crawler.Summary{}, fmt.Errorf("copy static dir: %w", err)
		}
		a.logger.Info("static files copied", zap.String("dir", dir), zap.Int("files", n))
	}
	return a.engine.Run(ctx)
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing services", zap.Error(err))
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}
