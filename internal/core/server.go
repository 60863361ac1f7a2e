// Package core provides the HTTP chassis for the mailroom service. It creates
// a chi router, enforces cross-cutting concerns (panic recovery, request IDs,
// security headers, structured request logging) before requests reach the
// webhook handlers, and wraps the standard library server with graceful
// shutdown.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mailroom/internal/config"
)

// Pinger reports backing-store health for the health endpoint. The pgx pool
// satisfies it directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouteRegistrar registers a group of handler routes on the router. Handlers
// are registered by the application entry point; this indirection avoids an
// import cycle between core and the handler packages.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the HTTP-facing dependencies of the mailroom service,
// allowing for easy injection during testing.
type Server struct {
	Config *config.Config
	Logger *slog.Logger
	DB     Pinger

	// Route registrars populated by the entry point before MountRoutes.
	Registrars []RouteRegistrar

	router *chi.Mux
	httpd  *http.Server
}

// NewServer initializes the router and prepares the server for route mounting.
// The caller is responsible for appending Registrars and calling MountRoutes
// after construction.
func NewServer(cfg *config.Config, logger *slog.Logger, db Pinger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config: cfg,
		Logger: logger,
		DB:     db,
		router: chi.NewRouter(),
	}

	return s, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ListenAndServe starts the HTTP listener and blocks until the context is
// cancelled or the listener fails. On cancellation it drains in-flight
// requests with a bounded shutdown deadline.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpd = &http.Server{
		Addr:              ":" + s.Config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http server listening", slog.String("addr", s.httpd.Addr))
		if err := s.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.Logger.Info("http server shutting down")
	if err := s.httpd.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return <-errCh
}
