package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"esgpulse/internal/config"
	apierrors "esgpulse/internal/errors"
	"esgpulse/internal/exporter"
	"esgpulse/internal/middleware"
	"esgpulse/internal/services"
	"esgpulse/pkg/contracts/domain"
)

// MaxEventsPerRequest bounds the events accepted by one feature request.
const MaxEventsPerRequest = 500

// FeatureRunner runs feature studies and keeps the latest report.
type FeatureRunner interface {
	Run(ctx context.Context, events []domain.NewsEvent) (*services.RunReport, error)
	Latest() (*services.RunReport, error)
}

// FeatureRequest is the body of POST /api/v1/features.
type FeatureRequest struct {
	Events []domain.NewsEvent `json:"events" validate:"required,min=1,max=500,dive"`
}

// FeatureHandler serves feature runs.
type FeatureHandler struct {
	service      FeatureRunner
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	marker       string
	logger       *slog.Logger
}

// NewFeatureHandler creates a feature handler. marker is written to CSV
// cells holding absent values.
func NewFeatureHandler(service FeatureRunner, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, marker string, logger *slog.Logger) *FeatureHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if marker == "" {
		marker = exporter.DefaultMissingMarker
	}
	return &FeatureHandler{
		service:      service,
		validator:    validator,
		query:        middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		marker:       marker,
		logger:       logger.With(slog.String("component", "feature_handler")),
	}
}

// Routes returns the feature routes
func (h *FeatureHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator("application/json")).Post("/", h.Run)
	r.Get("/latest", h.Latest)
	return r
}

// Run handles POST /api/v1/features
func (h *FeatureHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req FeatureRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "feature run requested",
		slog.Int("events", len(req.Events)),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("client", middleware.APIClient(r.Context())),
	)

	report, err := h.service.Run(r.Context(), req.Events)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.translate(err))
		return
	}
	render.JSON(w, r, report)
}

// Latest handles GET /api/v1/features/latest
func (h *FeatureHandler) Latest(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format",
		[]string{string(exporter.FormatJSON), string(exporter.FormatCSV), string(exporter.FormatXLSX), string(exporter.FormatParquet)},
		string(exporter.FormatJSON))
	if !ok {
		return
	}

	report, err := h.service.Latest()
	if err != nil {
		h.errorHandler.HandleError(w, r, h.translate(err))
		return
	}

	f := exporter.Format(format)
	if f == exporter.FormatJSON {
		render.JSON(w, r, report)
		return
	}

	name := config.RunFileName(report.RunID, report.StartedAt) + f.Ext()
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	switch f {
	case exporter.FormatCSV:
		err = exporter.WriteFeaturesCSV(w, report.Rows, h.marker)
	case exporter.FormatXLSX:
		err = exporter.WriteFeaturesXLSX(w, report.Rows)
	case exporter.FormatParquet:
		err = exporter.WriteFeaturesParquet(w, report.Rows, "")
	}
	if err != nil {
		// Headers are already sent; the client sees a truncated body.
		h.logger.ErrorContext(r.Context(), "failed to stream latest run",
			slog.String("format", format),
			slog.String("run_id", report.RunID),
			slog.String("error", err.Error()),
		)
	}
}

func (h *FeatureHandler) translate(err error) error {
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		return apierrors.ErrRunInProgress
	case errors.Is(err, services.ErrNoResult):
		return apierrors.ErrNoResult
	case errors.Is(err, services.ErrTooManyEvents):
		return apierrors.ErrValidation("events", err.Error())
	}
	return err
}
