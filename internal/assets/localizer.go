// Package assets copies the images referenced by rendered pages into the site
// and rewrites their src attributes to local, content-addressed paths.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/docsite/internal/metrics"
)

const (
	sourceRemote = "remote"
	sourceInline = "inline"

	outcomeStored = "stored"
	outcomeReused = "reused"
	outcomeFailed = "failed"
)

// FetchResponse is a downloaded remote resource.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher downloads remote images.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// BlobStore persists localized files.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Hasher names content by digest.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Config controls where images land and how they are addressed.
type Config struct {
	// Dir is the object directory inside the site, e.g. "static/images".
	Dir string
	// URLPrefix is the public path of Dir, e.g. "/static/images/".
	URLPrefix string
	// StaticPrefix marks sources that already point into the site.
	StaticPrefix string
}

// Stats summarizes one session.
type Stats struct {
	Stored int
	Reused int
	Failed int
}

// Localizer rewrites image sources in rendered HTML fragments.
type Localizer struct {
	cfg     Config
	fetcher Fetcher
	store   BlobStore
	hasher  Hasher
	logger  *zap.Logger
}

// New builds a Localizer.
func New(cfg Config, fetcher Fetcher, store BlobStore, hasher Hasher, logger *zap.Logger) (*Localizer, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Dir = strings.Trim(cfg.Dir, "/")
	if cfg.Dir == "" {
		cfg.Dir = "static/images"
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/" + cfg.Dir + "/"
	}
	if !strings.HasSuffix(cfg.URLPrefix, "/") {
		cfg.URLPrefix += "/"
	}
	if cfg.StaticPrefix == "" {
		cfg.StaticPrefix = "/static/"
	}
	return &Localizer{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		hasher:  hasher,
		logger:  logger,
	}, nil
}

// NewSession starts a cache scope, normally one per build. A remote URL or
// data URI is processed at most once per session.
func (l *Localizer) NewSession() *Session {
	return &Session{
		l:        l,
		bySource: make(map[string]string),
		written:  make(map[string]struct{}),
	}
}

// Session is safe for concurrent use.
type Session struct {
	l     *Localizer
	group singleflight.Group

	mu       sync.Mutex
	bySource map[string]string
	written  map[string]struct{}
	stats    Stats
}

// Stats returns the counts accumulated so far.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Localize rewrites the src of every img element in fragment. Everything
// other than rewritten img tags is copied through byte for byte. Images that
// cannot be fetched or decoded keep their original src; only storage
// failures are returned as errors.
func (s *Session) Localize(ctx context.Context, fragment string) (string, error) {
	if !strings.Contains(strings.ToLower(fragment), "<img") {
		return fragment, nil
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var out strings.Builder
	out.Grow(len(fragment))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return out.String(), nil
			}
			return "", fmt.Errorf("tokenize html: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			// Token lowercases the tag name inside the tokenizer buffer.
			raw := string(z.Raw())
			tok := z.Token()
			if tok.DataAtom != atom.Img {
				out.WriteString(raw)
				continue
			}
			changed, err := s.rewriteImg(ctx, &tok)
			if err != nil {
				return "", err
			}
			if changed {
				out.WriteString(tok.String())
			} else {
				out.WriteString(raw)
			}
		default:
			out.Write(z.Raw())
		}
	}
}

func (s *Session) rewriteImg(ctx context.Context, tok *html.Token) (bool, error) {
	for i, attr := range tok.Attr {
		if attr.Namespace != "" || attr.Key != "src" {
			continue
		}
		href, err := s.resolve(ctx, attr.Val)
		if err != nil {
			return false, err
		}
		if href == attr.Val {
			return false, nil
		}
		tok.Attr[i].Val = href
		return true, nil
	}
	return false, nil
}

// resolve returns the local href for src, or src itself when it is left alone.
func (s *Session) resolve(ctx context.Context, src string) (string, error) {
	trimmed := strings.TrimSpace(src)
	switch {
	case trimmed == "":
		return src, nil
	case strings.HasPrefix(trimmed, s.l.cfg.StaticPrefix):
		return src, nil
	case IsDataURI(trimmed):
		return s.once(ctx, trimmed, sourceInline, s.localizeData)
	case isRemote(trimmed):
		return s.once(ctx, trimmed, sourceRemote, s.localizeRemote)
	default:
		return src, nil
	}
}

type localizeFunc func(ctx context.Context, src string) (string, error)

func (s *Session) once(ctx context.Context, src, source string, fn localizeFunc) (string, error) {
	if href, ok := s.cached(src); ok {
		if href != src {
			s.count(source, outcomeReused, 0)
		}
		return href, nil
	}
	v, err, _ := s.group.Do(src, func() (any, error) {
		if href, ok := s.cached(src); ok {
			return href, nil
		}
		href, err := fn(ctx, src)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.bySource[src] = href
		s.mu.Unlock()
		return href, nil
	})
	if err != nil {
		return "", err
	}
	href, _ := v.(string)
	return href, nil
}

func (s *Session) cached(src string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	href, ok := s.bySource[src]
	return href, ok
}

func (s *Session) localizeRemote(ctx context.Context, src string) (string, error) {
	resp, err := s.l.fetcher.Fetch(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("fetch image %s: %w", src, ctx.Err())
		}
		s.l.logger.Warn("image download failed; keeping remote src",
			zap.String("url", src), zap.Error(err))
		s.count(sourceRemote, outcomeFailed, 0)
		return src, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || len(resp.Body) == 0 {
		s.l.logger.Warn("image download returned no content; keeping remote src",
			zap.String("url", src),
			zap.Int("status", resp.StatusCode),
			zap.Int("bytes", len(resp.Body)))
		s.count(sourceRemote, outcomeFailed, 0)
		return src, nil
	}

	ext := extForMediaType(resp.Headers.Get("Content-Type"))
	if ext == "" {
		ext = extForURL(src)
	}
	if ext == "" {
		ext = fallbackExt
	}
	return s.store(ctx, sourceRemote, resp.Body, ext)
}

func (s *Session) localizeData(ctx context.Context, src string) (string, error) {
	uri, err := ParseDataURI(src)
	if err != nil || len(uri.Data) == 0 {
		s.l.logger.Debug("undecodable data URI; keeping inline src", zap.Error(err))
		s.count(sourceInline, outcomeFailed, 0)
		return src, nil
	}
	ext := extForMediaType(uri.MediaType)
	if ext == "" {
		ext = fallbackExt
	}
	return s.store(ctx, sourceInline, uri.Data, ext)
}

// store writes data under its digest unless an object with that name is
// already present.
func (s *Session) store(ctx context.Context, source string, data []byte, ext string) (string, error) {
	digest, err := s.l.hasher.Hash(data)
	if err != nil {
		return "", fmt.Errorf("hash image: %w", err)
	}
	name := digest + ext
	objectPath := path.Join(s.l.cfg.Dir, name)
	href := s.l.cfg.URLPrefix + name

	s.mu.Lock()
	_, seen := s.written[objectPath]
	s.mu.Unlock()
	if seen {
		s.count(source, outcomeReused, 0)
		return href, nil
	}

	exists, err := s.l.store.Exists(ctx, objectPath)
	if err != nil {
		return "", fmt.Errorf("check image %s: %w", objectPath, err)
	}
	if exists {
		s.count(source, outcomeReused, 0)
	} else {
		if _, err := s.l.store.PutObject(ctx, objectPath, contentTypeForExt(ext), bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("write image %s: %w", objectPath, err)
		}
		s.l.logger.Debug("image localized",
			zap.String("source", source),
			zap.String("path", objectPath),
			zap.Int("bytes", len(data)))
		s.count(source, outcomeStored, len(data))
	}

	s.mu.Lock()
	s.written[objectPath] = struct{}{}
	s.mu.Unlock()
	return href, nil
}

func (s *Session) count(source, outcome string, bytesWritten int) {
	s.mu.Lock()
	switch outcome {
	case outcomeStored:
		s.stats.Stored++
	case outcomeReused:
		s.stats.Reused++
	case outcomeFailed:
		s.stats.Failed++
	}
	s.mu.Unlock()
	metrics.ObserveImage(source, outcome, bytesWritten)
}

func isRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
