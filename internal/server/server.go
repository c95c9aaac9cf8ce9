// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"modelgate/internal/gateway"
	"modelgate/internal/observability"
	"modelgate/internal/usage"
)

// Config holds server options.
type Config struct {
	// MasterKey enables bearer authentication when set.
	MasterKey string
	// DefaultProvider is used when a request names no provider.
	DefaultProvider string
	// Metrics, when non-nil, exposes the Prometheus endpoint.
	Metrics *observability.PrometheusHooks
	// MetricsEndpoint is the metrics path (default /metrics).
	MetricsEndpoint string
}

// Server wraps the Echo server.
type Server struct {
	echo *echo.Echo
}

// New wires routes and middleware. The health and metrics endpoints skip
// authentication.
func New(gw *gateway.Gateway, rec usage.Recorder, cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true

	handler := newHandler(gw, rec, cfg.DefaultProvider)

	skipAuth := []string{"/health"}
	metricsPath := "/metrics"
	if cfg.Metrics != nil {
		if cfg.MetricsEndpoint != "" {
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		skipAuth = append(skipAuth, metricsPath)
	}

	e.Use(middleware.Recover())
	if cfg.MasterKey != "" {
		e.Use(AuthMiddleware(cfg.MasterKey, skipAuth))
	}

	e.GET("/health", handler.Health)
	if cfg.Metrics != nil {
		e.GET(metricsPath, echo.WrapHandler(cfg.Metrics.Handler()))
	}

	e.POST("/v1/chat/completions", handler.ChatCompletion)
	e.GET("/v1/providers", handler.ListProviders)
	e.GET("/v1/usage", handler.RecentUsage)

	return &Server{echo: e}
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler so the server can be driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
