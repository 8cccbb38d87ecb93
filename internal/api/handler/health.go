package handler

import (
	"net/http"
	"time"

	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/dependencies/clock"
)

// ServiceName is reported by the health check
const ServiceName = "typerace"

// HealthHandler reports liveness and uptime
type HealthHandler struct {
	clock     clock.Clock
	startedAt time.Time
}

// NewHealthHandler creates a health handler; uptime counts from now
func NewHealthHandler(clk clock.Clock) *HealthHandler {
	return &HealthHandler{clock: clk, startedAt: clk.Now()}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:        "ok",
		Service:       ServiceName,
		UptimeSeconds: int64(h.clock.Since(h.startedAt).Seconds()),
	})
}
