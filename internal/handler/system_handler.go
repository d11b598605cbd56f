package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health and metrics endpoints.
type SystemHandler struct {
	appName string
	version string
	checks  map[string]Pinger
}

// NewSystemHandler creates a system handler. checks are pinged by the health
// endpoint.
func NewSystemHandler(appName, version string, checks map[string]Pinger) *SystemHandler {
	return &SystemHandler{appName: appName, version: version, checks: checks}
}

// Register sets up the public health route under router and /metrics on app.
func (h *SystemHandler) Register(app *fiber.App, router fiber.Router) {
	router.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// Health reports the status of the app and its dependencies.
func (h *SystemHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	deps := make(fiber.Map, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"app":          h.appName,
		"version":      h.version,
		"dependencies": deps,
	})
}
