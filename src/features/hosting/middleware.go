package hosting

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HTMXMiddleware creates middleware for logging HTMX requests
func HTMXMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		isHTMX := c.Get("HX-Request") == "true"

		err := c.Next()

		if isHTMX {
			slog.Debug("HTMX request",
				"method", c.Method(),
				"path", c.Path(),
				"status", c.Response().StatusCode(),
				"duration", time.Since(start).String(),
				"hx_trigger", c.Get("HX-Trigger"),
				"hx_target", c.Get("HX-Target"),
				"hx_current_url", c.Get("HX-Current-URL"),
			)
		}
		return err
	}
}

// LogAllRequestsMiddleware logs all requests with HTMX context
func LogAllRequestsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		isHTMX := c.Get("HX-Request") == "true"
		requestType := "normal"
		if isHTMX {
			requestType = "htmx"
		}

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		if status >= 400 {
			slog.Error("HTTP request",
				"type", requestType,
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"duration", duration.String(),
				"error", err,
			)
		} else {
			slog.Debug("HTTP request",
				"type", requestType,
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"duration", duration.String(),
			)
		}
		return err
	}
}
