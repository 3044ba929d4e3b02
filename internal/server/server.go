package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/robbyt/go-supervisor/runnables/httpserver"
	"github.com/robbyt/go-supervisor/supervisor"

	"github.com/loopfarm/printloop/internal/config"
)

// Server owns the HTTP listener: the handler, the route table, and the
// go-supervisor runner behind them.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler *Handler
	runner  *httpserver.Runner
}

// New builds a Server from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	handler := NewHandler(cfg, logger)
	routes, err := buildRoutes(handler, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build routes: %w", err)
	}

	configCallback := func() (*httpserver.Config, error) {
		return httpserver.NewConfig(cfg.ListenAddr, routes,
			httpserver.WithReadTimeout(cfg.HTTP.ReadTimeout.Std()),
			httpserver.WithWriteTimeout(cfg.HTTP.WriteTimeout.Std()),
			httpserver.WithIdleTimeout(cfg.HTTP.IdleTimeout.Std()),
			httpserver.WithDrainTimeout(cfg.HTTP.DrainTimeout.Std()),
		)
	}

	runner, err := httpserver.NewRunner(
		httpserver.WithConfigCallback(configCallback),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server runner: %w", err)
	}

	return &Server{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
		runner:  runner,
	}, nil
}

// Handler returns the API handler, mainly for tests that drive it
// directly without a listener.
func (s *Server) Handler() *Handler {
	return s.handler
}

// Run blocks serving requests until the context is canceled or a
// shutdown signal arrives. Lifecycle and draining are delegated to the
// supervisor.
func (s *Server) Run(ctx context.Context, logHandler slog.Handler) error {
	super, err := supervisor.New(
		supervisor.WithContext(ctx),
		supervisor.WithLogHandler(logHandler),
		supervisor.WithRunnables(s.runner),
	)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	s.logger.Info("Starting HTTP listener",
		"address", s.cfg.ListenAddr,
		"max_upload_bytes", s.cfg.MaxUploadBytes)
	return super.Run()
}

// buildRoutes assembles the route table. Every route shares the request
// id and logging middleware.
func buildRoutes(handler *Handler, logger *slog.Logger) ([]httpserver.Route, error) {
	middlewares := []httpserver.HandlerFunc{
		requestID(),
		requestLogger(logger),
	}

	endpoints := []struct {
		id   string
		path string
		fn   http.HandlerFunc
	}{
		{"process", "/process", handler.Process},
		{"preview", "/preview", handler.Preview},
		// Trailing slash registers the whole /jobs/ subtree on the mux, so
		// /jobs/{id} and /jobs/{id}/logs reach JobRoutes.
		{"jobs", "/jobs/", handler.JobRoutes},
		{"healthz", "/healthz", handler.Health},
	}

	routes := make([]httpserver.Route, 0, len(endpoints))
	for _, ep := range endpoints {
		route, err := httpserver.NewRouteFromHandlerFunc(ep.id, ep.path, ep.fn, middlewares...)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", ep.id, err)
		}
		routes = append(routes, *route)
	}
	return routes, nil
}
