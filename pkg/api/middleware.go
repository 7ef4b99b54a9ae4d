package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
)

// securityHeaders returns middleware that sets standard security response headers.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}

// requestLogger tags every request with an id and logs method, path, status,
// and duration.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			requestID := uuid.NewString()
			c.Response().Header().Set("X-Request-ID", requestID)

			started := time.Now()
			err := next(c)

			status := 0
			if res, unwrapErr := echo.UnwrapResponse(c.Response()); unwrapErr == nil {
				status = res.Status
			}
			slog.Info("HTTP request",
				"request_id", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(started).Milliseconds())
			return err
		}
	}
}

// corsMiddleware is open in non-production and allowlist-restricted in
// production.
func corsMiddleware(env *config.Environment) echo.MiddlewareFunc {
	allowed := map[string]bool{}
	for _, origin := range env.CORSAllowedOrigins {
		allowed[strings.TrimSpace(origin)] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			origin := c.Request().Header.Get("Origin")
			h := c.Response().Header()

			switch {
			case !env.IsProduction():
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

// rateLimit enforces the per-IP request budget. The limiter is resolved
// through the server on every request, not captured at construction.
func rateLimit(s *Server) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if !s.limiter.allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error":     "rate limit exceeded",
					"timestamp": time.Now().UTC(),
				})
			}
			return next(c)
		}
	}
}
