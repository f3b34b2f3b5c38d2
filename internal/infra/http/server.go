package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/caseaccessio/api/internal/config"
	"github.com/caseaccessio/api/internal/infra/http/middleware"
	"github.com/caseaccessio/api/pkg/logger"
)

// Server wraps the HTTP server with the global middleware chain and a
// graceful shutdown path.
type Server struct {
	httpServer   *http.Server
	config       *config.Config
	logger       *logger.Logger
	cleanupFuncs []func()
}

// NewServer creates the HTTP server around the given route tree.
func NewServer(cfg *config.Config, routes http.Handler, log *logger.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: log,
	}

	rateLimitMw, rateLimitStop := middleware.RateLimitWithStop(&cfg.RateLimit, log)
	s.cleanupFuncs = append(s.cleanupFuncs, rateLimitStop)

	// Order matters: recovery outermost, metrics and logging innermost so
	// they observe the final status.
	chain := middleware.Recovery(log, cfg.IsProduction())(
		middleware.RequestID()(
			middleware.CORS(&cfg.CORS)(
				rateLimitMw(
					middleware.Timeout(cfg.Server.RequestTimeout)(
						middleware.Metrics(
							middleware.LoggerWithConfig(log, middleware.DefaultLoggerConfig())(
								routes,
							),
						),
					),
				),
			),
		),
	)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.config.Server.Addr())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	for _, cleanup := range s.cleanupFuncs {
		cleanup()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
