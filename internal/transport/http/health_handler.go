package http

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"esgpulse/internal/services"
)

// HealthChecker reports service health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	service HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service HealthChecker) *HealthHandler {
	return &HealthHandler{service: service}
}

// HealthCheck handles GET /healthz. A degraded service still answers 200 so
// liveness probes only fail when the process is down.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.HealthCheck(r.Context()))
}
