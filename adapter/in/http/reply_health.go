package http

import (
	"context"
	"time"

	"reply_server/core/port/out"
	"reply_server/pkg/logger"
	"reply_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

const (
	HealthMessage = "AI Email Reply Generator API is running"
	readyTimeout  = 5 * time.Second
)

type HealthHandler struct {
	backend out.BackendPinger
	latency *metrics.Registry
}

// NewHealthHandler builds the liveness and readiness endpoints. Both
// arguments may be nil; /health never uses them.
func NewHealthHandler(backend out.BackendPinger, latency *metrics.Registry) *HealthHandler {
	return &HealthHandler{
		backend: backend,
		latency: latency,
	}
}

func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"message": HealthMessage,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if h.backend != nil {
		if err := h.backend.Ping(ctx); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("backend readiness check failed")
			checks["backend"] = "unhealthy"
			ready = false
		} else {
			checks["backend"] = "healthy"
		}
	} else {
		checks["backend"] = "not configured"
		ready = false
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !ready {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	resp := fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.latency != nil {
		resp["latency"] = h.latency.Snapshot()
	}
	return c.Status(statusCode).JSON(resp)
}
