package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"esgpulse/internal/analysis"
	apierrors "esgpulse/internal/errors"
	"esgpulse/internal/middleware"
	"esgpulse/internal/services"
	"esgpulse/pkg/contracts/domain"
)

// AnalysisProvider shapes rows for the regression service and evaluates
// alerts.
type AnalysisProvider interface {
	BuildRequest(rows []domain.FeatureRow) analysis.Request
	Run(ctx context.Context, rows []domain.FeatureRow) (string, error)
	Alerts(records []analysis.AlertRecord) []analysis.Alert
}

// RowsRequest carries feature rows.
type RowsRequest struct {
	Rows []domain.FeatureRow `json:"rows" validate:"required,dive"`
}

// AlertsRequest carries scored tickers.
type AlertsRequest struct {
	Records []analysis.AlertRecord `json:"records" validate:"required,dive"`
}

// AnalysisHandler serves the analysis and alert endpoints.
type AnalysisHandler struct {
	service      AnalysisProvider
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAnalysisHandler creates an analysis handler
func NewAnalysisHandler(service AnalysisProvider, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "analysis_handler")),
	}
}

// Routes returns the /analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.ContentTypeValidator("application/json"))
	r.Post("/request", h.BuildRequest)
	r.Post("/run", h.Run)
	return r
}

// BuildRequest handles POST /api/v1/analysis/request
func (h *AnalysisHandler) BuildRequest(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, h.service.BuildRequest(req.Rows))
}

// Run handles POST /api/v1/analysis/run
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Run(r.Context(), req.Rows)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotConfigured):
			h.errorHandler.HandleError(w, r, apierrors.ErrNotConfigured)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			h.errorHandler.HandleError(w, r, err)
		default:
			h.errorHandler.HandleError(w, r, apierrors.UpstreamError("analysis", err))
		}
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"observations":  len(req.Rows),
		"model_summary": summary,
	})
}

// Alerts handles POST /api/v1/alerts
func (h *AnalysisHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	var req AlertsRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	alerts := h.service.Alerts(req.Records)
	h.logger.DebugContext(r.Context(), "alerts evaluated",
		slog.Int("records", len(req.Records)),
		slog.Int("alerts", len(alerts)),
	)
	render.JSON(w, r, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
