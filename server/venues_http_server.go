package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"venues-server/config"
	"venues-server/logging"
)

// VenuesHttpServer runs the API as a supervised service.
type VenuesHttpServer struct {
	router *Router
	cfg    *config.Config
	logger zerolog.Logger

	once    sync.Once
	handler http.Handler
}

func NewVenuesHttpServer(router *Router, cfg *config.Config) *VenuesHttpServer {
	return &VenuesHttpServer{
		router: router,
		cfg:    cfg,
		logger: logging.Component("http_server"),
	}
}

// Handler registers the routes on first use and returns the wrapped router.
func (s *VenuesHttpServer) Handler() http.Handler {
	s.once.Do(func() {
		s.router.RegisterRoutes()
		s.handler = s.router.Handler()
	})
	return s.handler
}

// Serve listens until ctx is done, then shuts down gracefully within the
// configured timeout. A listener failure is returned so the supervisor can
// restart the server.
func (s *VenuesHttpServer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ListenAndServe(): %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down the server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info().Msg("Server exiting")
	return nil
}

func (s *VenuesHttpServer) String() string {
	return "http-server"
}
