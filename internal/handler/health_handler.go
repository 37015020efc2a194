package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
)

// Pinger is implemented by dependencies the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	history Pinger // nil when the durable history log is disabled
}

// NewHealthHandler creates the health handler. history may be nil.
func NewHealthHandler(history Pinger) *HealthHandler {
	return &HealthHandler{history: history}
}

// Ping is the basic health check.
func (h *HealthHandler) Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(200, utils.H{
		"status":  "ok",
		"message": "pong",
	})
}

// Readiness checks the service and its dependencies.
func (h *HealthHandler) Readiness(ctx context.Context, c *app.RequestContext) {
	if h.history != nil {
		if err := h.history.Ping(ctx); err != nil {
			c.JSON(503, utils.H{
				"status":  "not_ready",
				"history": "unhealthy",
				"error":   err.Error(),
			})
			return
		}
	}

	c.JSON(200, utils.H{
		"status": "ready",
	})
}

// Liveness checks that the process is alive.
func (h *HealthHandler) Liveness(ctx context.Context, c *app.RequestContext) {
	c.JSON(200, utils.H{
		"status": "alive",
	})
}
