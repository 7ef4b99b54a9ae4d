package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
)

// healthHandler handles GET /health. The body is the same for every outcome;
// only the status code flips so orchestration probes can act on it.
func (s *Server) healthHandler(c *echo.Context) error {
	status := s.monitor.Snapshot(c.Request().Context())

	httpStatus := http.StatusOK
	if !status.Healthy() {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, status)
}

// metricsHandler handles GET /metrics.
func (s *Server) metricsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.metrics.Snapshot())
}

// discoveryHandler handles GET /.well-known/mcp.
func (s *Server) discoveryHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":    "aoma-mesh",
		"version": s.env.Version,
		"endpoints": map[string]string{
			"health":  "/health",
			"metrics": "/metrics",
			"rpc":     "/rpc",
			"tools":   "/tools/{name}",
		},
		"capabilities": s.dispatcher.Registry().Names(),
		"lastUpdated":  time.Now().UTC().Format(time.RFC3339),
	})
}

// registryHandler handles GET /registry.
func (s *Server) registryHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":        "aoma-mesh",
		"version":     s.env.Version,
		"description": "Enterprise knowledge retrieval server for the AOMA asset management ecosystem.",
		"tools":       s.dispatcher.Registry().List(),
		"health":      "/health",
	})
}
