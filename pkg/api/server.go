// Package api serves the HTTP surface: health, metrics, JSON-RPC tool calls,
// direct tool endpoints, and the discovery documents.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
	"github.com/aoma-tools/aoma-mesh/pkg/health"
	"github.com/aoma-tools/aoma-mesh/pkg/metrics"
	"github.com/aoma-tools/aoma-mesh/pkg/tools"
)

const (
	rateLimitRequests = 1000
	rateLimitWindow   = 15 * time.Minute
)

// Server owns the echo instance and the HTTP listener.
type Server struct {
	env        *config.Environment
	dispatcher *tools.Dispatcher
	monitor    *health.Monitor
	metrics    *metrics.Collector

	echo    *echo.Echo
	http    *http.Server
	limiter *rateLimiter
}

// NewServer wires routes and middleware. Nothing listens until Start.
func NewServer(env *config.Environment, dispatcher *tools.Dispatcher, monitor *health.Monitor, collector *metrics.Collector) *Server {
	s := &Server{
		env:        env,
		dispatcher: dispatcher,
		monitor:    monitor,
		metrics:    collector,
		limiter:    newRateLimiter(rateLimitRequests, rateLimitWindow),
	}

	e := echo.New()
	e.Use(requestLogger())
	e.Use(securityHeaders())
	e.Use(corsMiddleware(env))
	e.Use(rateLimit(s))

	e.GET("/health", s.healthHandler)
	e.GET("/metrics", s.metricsHandler)
	e.POST("/rpc", s.rpcHandler)
	e.POST("/tools/:name", s.toolHandler)
	e.GET("/.well-known/mcp", s.discoveryHandler)
	e.GET("/registry", s.registryHandler)

	s.echo = e
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", env.HTTPPort),
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start begins serving. It blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and drains in-flight handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
