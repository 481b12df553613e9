package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/docsite/internal/convert"
	"github.com/JakeFAU/docsite/internal/doclink"
	"github.com/JakeFAU/docsite/internal/document"
	"github.com/JakeFAU/docsite/internal/logging"
	"github.com/JakeFAU/docsite/internal/metrics"
	"github.com/JakeFAU/docsite/internal/site"
	"github.com/JakeFAU/docsite/internal/slug"
)

const (
	rootPath        = "index.html"
	rootHref        = "/"
	pageFile        = "index.html"
	pageDir         = "p"
	htmlContentType = "text/html; charset=utf-8"
)

// Config controls Engine behavior.
type Config struct {
	RootID string
	// Topic receives the run Summary when a Publisher is set.
	Topic string
	// ContentType is stored with every page.
	ContentType string
}

// Deps are the collaborators of an Engine. Source, Converter, Renderer and
// Store are required.
type Deps struct {
	Source    DocumentSource
	Converter Converter
	Renderer  PageRenderer
	Store     BlobStore
	Images    ImageLocalizer
	Manifest  ManifestStore
	Publisher Publisher
	Hasher    Hasher
	Clock     Clock
	IDs       IDGenerator
}

// Engine runs crawls.
type Engine struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs an Engine.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Engine, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("document source is required")
	case deps.Converter == nil:
		return nil, errors.New("converter is required")
	case deps.Renderer == nil:
		return nil, errors.New("page renderer is required")
	case deps.Store == nil:
		return nil, errors.New("blob store is required")
	}
	if deps.Clock == nil {
		deps.Clock = wallClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContentType == "" {
		cfg.ContentType = htmlContentType
	}
	cfg.RootID = strings.TrimSpace(cfg.RootID)
	return &Engine{deps: deps, cfg: cfg, logger: logger}, nil
}

// RootID returns the configured root document id.
func (e *Engine) RootID() string {
	return e.cfg.RootID
}

// Run crawls every document reachable from the root and writes one page per
// document. Any document fetch or page write failure aborts the run.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	if e.cfg.RootID == "" {
		return Summary{}, ErrEmptyRootID
	}
	runID, err := e.newRunID()
	if err != nil {
		return Summary{}, err
	}
	r := e.newRun(runID)
	r.logger.Info("build started")

	r.frontier.TryEnqueue(e.cfg.RootID, "")
	r.states[e.cfg.RootID] = PageStatePending
	for {
		item, ok := r.frontier.Next()
		if !ok {
			break
		}
		metrics.SetFrontierPending(r.frontier.Len())
		if err := ctx.Err(); err != nil {
			return r.finish(), err
		}
		if err := r.visit(ctx, item); err != nil {
			metrics.ObservePage("failed")
			r.logger.Error("build aborted",
				zap.String("document_id", item.DocumentID),
				zap.Int("pages_written", r.summary.Pages),
				zap.Error(err))
			return r.finish(), err
		}
	}

	summary := r.finish()
	metrics.ObserveBuild(summary.Duration, summary.FinishedAt)
	r.logger.Info("build finished",
		zap.Int("pages", summary.Pages),
		zap.Int("links", summary.Links),
		zap.Int("images", summary.Images),
		zap.Int("images_failed", summary.ImagesFailed),
		zap.Duration("duration", summary.Duration))
	e.publish(ctx, r.logger, summary)
	return summary, nil
}

// RenderDocument renders a single document without crawling its links. Links
// to other documents use the slug of their anchor text; a link to the root
// document points at "/".
func (e *Engine) RenderDocument(ctx context.Context, id string) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyRootID
	}
	doc, err := e.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	resolver := convert.LinkResolverFunc(func(ref convert.LinkReference) string {
		if ref.TargetID == e.cfg.RootID {
			return rootHref
		}
		return doclink.Href(ref.SuggestedSlug)
	})
	var session ImageSession
	if e.deps.Images != nil {
		session = e.deps.Images.NewSession()
	}
	return e.buildPage(ctx, id, doc, resolver, session, e.deps.Clock.Now())
}

func (e *Engine) newRunID() (string, error) {
	if e.deps.IDs == nil {
		return "", nil
	}
	id, err := e.deps.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id, nil
}

func (e *Engine) fetch(ctx context.Context, id string) (*document.Document, error) {
	start := e.deps.Clock.Now()
	doc, err := e.deps.Source.FetchDocument(ctx, id)
	elapsed := e.deps.Clock.Now().Sub(start)
	if err != nil {
		metrics.ObserveDocumentFetch("error", elapsed)
		return nil, fmt.Errorf("fetch document %s: %w", id, err)
	}
	metrics.ObserveDocumentFetch("ok", elapsed)
	return doc, nil
}

// buildPage converts doc, localizes its images and renders it into the site
// template.
func (e *Engine) buildPage(
	ctx context.Context,
	id string,
	doc *document.Document,
	resolver convert.LinkResolver,
	session ImageSession,
	updated time.Time,
) ([]byte, error) {
	res, err := e.deps.Converter.Convert(doc, resolver)
	if err != nil {
		return nil, fmt.Errorf("convert document %s: %w", id, err)
	}
	content := res.HTML
	if session != nil {
		content, err = session.Localize(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("localize images in %s: %w", id, err)
		}
	}

	var nav *site.Nav
	if id != e.cfg.RootID {
		created, ok, err := e.deps.Source.CreatedTime(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch created time of %s: %w", id, err)
		}
		nav = site.NewNav(created, ok)
	}

	var buf bytes.Buffer
	if err := e.deps.Renderer.RenderPage(&buf, site.NewPage(doc.Title, content, nav, updated)); err != nil {
		return nil, fmt.Errorf("render page %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) publish(ctx context.Context, logger *zap.Logger, summary Summary) {
	if e.deps.Publisher == nil || e.cfg.Topic == "" {
		return
	}
	msgID, err := e.deps.Publisher.Publish(ctx, e.cfg.Topic, summary)
	if err != nil {
		logger.Warn("build notification failed", zap.String("topic", e.cfg.Topic), zap.Error(err))
		return
	}
	logger.Info("build notification published", zap.String("topic", e.cfg.Topic), zap.String("message_id", msgID))
}

// run is the state owned by one call to Run.
type run struct {
	e        *Engine
	id       string
	logger   *zap.Logger
	registry *slug.Registry
	frontier *Frontier
	states   map[string]PageState
	session  ImageSession
	summary  Summary
}

func (e *Engine) newRun(runID string) *run {
	r := &run{
		e:        e,
		id:       runID,
		logger:   logging.ForRun(e.logger, runID, e.cfg.RootID),
		registry: slug.NewRegistry(),
		frontier: NewFrontier(),
		states:   make(map[string]PageState),
		summary: Summary{
			RunID:     runID,
			RootID:    e.cfg.RootID,
			StartedAt: e.deps.Clock.Now(),
		},
	}
	if e.deps.Images != nil {
		r.session = e.deps.Images.NewSession()
	}
	return r
}

// ResolveLink reserves a slug for the link target and queues it. Links to the
// root document point at the site root and are never queued.
func (r *run) ResolveLink(ref convert.LinkReference) string {
	r.summary.Links++
	if ref.TargetID == r.e.cfg.RootID {
		return rootHref
	}
	s := r.registry.Reserve(ref.TargetID, ref.SuggestedSlug)
	if r.frontier.TryEnqueue(ref.TargetID, s) {
		r.states[ref.TargetID] = PageStatePending
		r.logger.Debug("document discovered",
			zap.String("document_id", ref.TargetID),
			zap.String("slug", s))
	}
	return doclink.Href(s)
}

// State reports the lifecycle state of id in this run.
func (r *run) State(id string) (PageState, bool) {
	s, ok := r.states[id]
	return s, ok
}

func (r *run) visit(ctx context.Context, item Item) error {
	id := item.DocumentID
	doc, err := r.e.fetch(ctx, id)
	if err != nil {
		return err
	}
	r.states[id] = PageStateFetched

	body, err := r.e.buildPage(ctx, id, doc, r, r.session, r.summary.StartedAt)
	if err != nil {
		return err
	}

	pageSlug, objectPath := r.outputPath(item)
	page := Page{Path: objectPath, Body: body}
	uri, err := r.e.deps.Store.PutObject(ctx, page.Path, r.e.cfg.ContentType, bytes.NewReader(page.Body))
	if err != nil {
		return fmt.Errorf("write page %s: %w", page.Path, err)
	}
	r.states[id] = PageStateWritten
	r.summary.Pages++
	metrics.ObservePage("written")

	if err := r.record(ctx, id, pageSlug, doc.Title, uri, page); err != nil {
		return err
	}
	r.logger.Info("page written",
		zap.String("document_id", id),
		zap.String("slug", pageSlug),
		zap.String("path", page.Path),
		zap.Int("bytes", len(page.Body)))
	return nil
}

// outputPath maps a frontier item to its slug and object path. The root
// renders to the top-level page and has no slug.
func (r *run) outputPath(item Item) (string, string) {
	if item.DocumentID == r.e.cfg.RootID {
		return "", rootPath
	}
	s, ok := r.registry.Lookup(item.DocumentID)
	if !ok {
		s = r.registry.Reserve(item.DocumentID, item.SlugHint)
	}
	return s, path.Join(pageDir, s, pageFile)
}

func (r *run) record(ctx context.Context, id, pageSlug, title, uri string, page Page) error {
	if r.e.deps.Manifest == nil {
		return nil
	}
	rec := PageRecord{
		RunID:      r.id,
		DocumentID: id,
		Slug:       pageSlug,
		Path:       page.Path,
		URI:        uri,
		Title:      title,
		WrittenAt:  r.e.deps.Clock.Now(),
	}
	if r.e.deps.Hasher != nil {
		digest, err := r.e.deps.Hasher.Hash(page.Body)
		if err != nil {
			return fmt.Errorf("hash page %s: %w", page.Path, err)
		}
		rec.ContentHash = digest
	}
	if err := r.e.deps.Manifest.RecordPage(ctx, rec); err != nil {
		return fmt.Errorf("record page %s: %w", page.Path, err)
	}
	return nil
}

func (r *run) finish() Summary {
	s := r.summary
	if r.session != nil {
		stats := r.session.Stats()
		s.Images = stats.Stored + stats.Reused
		s.ImagesReused = stats.Reused
		s.ImagesFailed = stats.Failed
	}
	s.FinishedAt = r.e.deps.Clock.Now()
	s.Duration = s.FinishedAt.Sub(s.StartedAt)
	return s
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }
