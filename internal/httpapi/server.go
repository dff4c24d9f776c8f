// Package httpapi serves the render endpoint over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	web2pdf "github.com/alnah/go-web2pdf"
	"github.com/alnah/go-web2pdf/internal/logging"
	"github.com/alnah/go-web2pdf/internal/metrics"
)

// Renderer renders one request into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, req web2pdf.RenderRequest) ([]byte, error)
}

// Config tunes the HTTP surface.
type Config struct {
	// MaxBodyBytes caps request bodies. Zero means no limit.
	MaxBodyBytes int64
	// RequestTimeout bounds each render. Zero means the client decides.
	RequestTimeout time.Duration
	// MetricsPath is where metrics are served, if a collector is set.
	MetricsPath string
}

// Server routes HTTP requests to a Renderer.
type Server struct {
	renderer Renderer
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New creates a Server. logger and m may be nil.
func New(renderer Renderer, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		renderer: renderer,
		cfg:      cfg,
		logger:   logging.Component(logger, "http"),
		metrics:  m,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, nil)
	})

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Post("/print", s.handlePrint)
	if s.metrics != nil && s.cfg.MetricsPath != "" {
		r.Method(http.MethodGet, s.cfg.MetricsPath, s.metrics.Handler())
	}
	return r
}

// logRequests logs every request once served and feeds the HTTP metrics.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		took := time.Since(start)

		s.logger.Info("request served",
			zap.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", took))
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, status, took)
		}
	})
}
