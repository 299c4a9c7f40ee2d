package http

import (
	"net/http"

	apierrors "esgpulse/internal/errors"
	"esgpulse/internal/middleware"
)

// MetricsHandler exposes the Prometheus registry.
type MetricsHandler struct {
	exposition http.Handler
}

// NewMetricsHandler wraps the Prometheus handler. A nil handler answers 503.
func NewMetricsHandler(exposition http.Handler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition}
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		apierrors.ProblemFromStatus(http.StatusServiceUnavailable, apierrors.TypeServiceDown,
			"metrics export is disabled", middleware.GetReqID(r.Context())).Write(w)
		return
	}
	h.exposition.ServeHTTP(w, r)
}
