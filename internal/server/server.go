// Package server exposes text art conversion over HTTP.
//
// Routes:
//
//	GET  /healthz      liveness probe, returns "ok"
//	GET  /v1/palettes  built-in palettes as JSON
//	POST /v1/convert   convert a remote image (JSON body) or an upload
//	                   (multipart field "image", options as query parameters)
//
// Conversions return text/plain art, or a JSON document when the request
// sends "Accept: application/json".
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/textart/pkg/pipeline"
)

// Config holds HTTP server settings. Zero values select defaults.
type Config struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxUpload     int64 // bytes accepted for an uploaded image
	MaxPixels     int64 // width*height accepted before decoding
	MaxConcurrent int   // conversions processed at once
}

const (
	defaultAddr          = ":8080"
	defaultMaxUpload     = 32 << 20
	defaultMaxPixels     = 50_000_000
	defaultMaxConcurrent = 8
	shutdownTimeout      = 10 * time.Second
)

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.MaxUpload <= 0 {
		c.MaxUpload = defaultMaxUpload
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = defaultMaxPixels
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
}

// Server serves the conversion API.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	cfg    Config
	router chi.Router
}

// New creates a Server that converts through runner. The runner's fetcher
// should have local file access disabled.
func New(runner *pipeline.Runner, logger *log.Logger, cfg Config) *Server {
	if logger == nil {
		logger = log.Default()
	}
	cfg.setDefaults()
	s := &Server{
		runner: runner,
		logger: logger,
		cfg:    cfg,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/palettes", s.handlePalettes)
		r.With(middleware.Throttle(s.cfg.MaxConcurrent)).Post("/convert", s.handleConvert)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
