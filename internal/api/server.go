package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/docsite/internal/crawler"
	"github.com/JakeFAU/docsite/internal/metrics"
	"github.com/JakeFAU/docsite/internal/source/fixtures"
	googlesrc "github.com/JakeFAU/docsite/internal/source/google"
)

const (
	staticCacheControl = "public, max-age=31536000, immutable"
	htmlContentType    = "text/html; charset=utf-8"
	notFoundText       = "Not found"
)

// PageRenderer renders single documents.
type PageRenderer interface {
	RenderDocument(ctx context.Context, id string) ([]byte, error)
	RootID() string
}

// Builder runs a full site build.
type Builder interface {
	Build(ctx context.Context) (crawler.Summary, error)
}

// Options configures the Server.
type Options struct {
	// StaticDirs are searched in order for /static/* requests.
	StaticDirs []string
	// APIKey protects the build endpoint when set.
	APIKey string
	// RenderTimeout bounds page rendering requests. Zero means 60s.
	RenderTimeout time.Duration
}

// Server wires HTTP handlers to the renderer and builder.
type Server struct {
	router   chi.Router
	pages    PageRenderer
	builder  Builder
	opts     Options
	logger   *zap.Logger
	building sync.Mutex
}

// NewServer constructs a Server with middleware and routes. builder may be nil,
// in which case the build endpoint is not registered.
func NewServer(pages PageRenderer, builder Builder, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = 60 * time.Second
	}
	s := &Server{
		pages:   pages,
		builder: builder,
		opts:    opts,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(opts.RenderTimeout))
		r.Get("/", s.root)
		r.Get("/page", s.page)
		r.Get("/static/*", s.static)
		r.Get("/api/static/*", s.static)
	})

	if builder != nil {
		r.Route("/v1", func(r chi.Router) {
			if opts.APIKey != "" {
				r.Use(apiKeyMiddleware(opts.APIKey))
			}
			r.Post("/builds", s.build)
		})
	}

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.pages == nil || s.pages.RootID() == "" {
		writeError(w, http.StatusServiceUnavailable, "root document id is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	s.renderDocument(w, r, s.pages.RootID())
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}
	s.renderDocument(w, r, id)
}

func (s *Server) renderDocument(w http.ResponseWriter, r *http.Request, id string) {
	body, err := s.pages.RenderDocument(r.Context(), id)
	if err != nil {
		status := statusForRenderError(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("render document failed", zap.String("document_id", id), zap.Error(err))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("write page failed", zap.String("document_id", id), zap.Error(err))
	}
}

func statusForRenderError(err error) int {
	switch {
	case errors.Is(err, crawler.ErrEmptyRootID):
		return http.StatusBadRequest
	case errors.Is(err, googlesrc.ErrNotFound), errors.Is(err, fixtures.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// static serves files from the configured static directories with a
// long-lived cache header.
func (s *Server) static(w http.ResponseWriter, r *http.Request) {
	rel := path.Clean("/" + chi.URLParam(r, "*"))
	if rel == "/" {
		http.Error(w, notFoundText, http.StatusNotFound)
		return
	}
	for _, dir := range s.opts.StaticDirs {
		f, err := http.Dir(dir).Open(rel)
		if err != nil {
			continue
		}
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			_ = f.Close()
			continue
		}
		w.Header().Set("Cache-Control", staticCacheControl)
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		_ = f.Close()
		return
	}
	http.Error(w, notFoundText, http.StatusNotFound)
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) {
	if !s.building.TryLock() {
		writeError(w, http.StatusConflict, "build already running")
		return
	}
	defer s.building.Unlock()

	summary, err := s.builder.Build(r.Context())
	if err != nil {
		s.logger.Error("build failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

