// internal/server/server.go

// Package server hosts the HTTP surface of the signup service: the job API,
// the health probe, and the static artifact browser for screenshots and
// per-job logs.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signupd/internal/config"
)

// Server wraps the HTTP listener and its routes.
type Server struct {
	cfg       config.ServerConfig
	logger    *zap.Logger
	handlers  *Handlers
	staticDir string

	httpServer *http.Server
}

// New assembles the server. staticDir is exposed read-only under /static/ so
// operators can pull screenshots referenced by job records.
func New(cfg config.ServerConfig, handlers *Handlers, staticDir string, logger *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger.Named("http"),
		handlers:  handlers,
		staticDir: staticDir,
	}
}

// Router builds the chi router with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	s.handlers.RegisterRoutes(r)

	if s.staticDir != "" {
		fs := http.FileServer(http.Dir(s.staticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fs))
	}

	return r
}

// Run serves until ctx is canceled, then drains with the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening.", zap.String("addr", s.cfg.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("HTTP server stopped.")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
