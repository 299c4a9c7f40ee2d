package services

import (
	"context"
	"fmt"
	"log/slog"

	"esgpulse/internal/analysis"
	"esgpulse/pkg/contracts/domain"
)

// AnalysisRunner is the remote regression client.
type AnalysisRunner interface {
	RunAnalysis(ctx context.Context, req analysis.Request) (string, error)
}

// AnalysisService shapes feature rows for the regression service and
// evaluates sentiment alerts.
type AnalysisService struct {
	sectors      analysis.Sectors
	dummySectors []string
	rules        analysis.AlertRules
	client       AnalysisRunner
	logger       *slog.Logger
}

// NewAnalysisService creates the service. client may be nil when no remote
// analysis endpoint is configured.
func NewAnalysisService(sectors analysis.Sectors, dummySectors []string, rules analysis.AlertRules, client AnalysisRunner, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		sectors:      sectors,
		dummySectors: dummySectors,
		rules:        rules,
		client:       client,
		logger:       logger.With(slog.String("component", "analysis_service")),
	}
}

// BuildRequest converts rows into the regression request body.
func (s *AnalysisService) BuildRequest(rows []domain.FeatureRow) analysis.Request {
	return analysis.BuildRequest(rows, s.sectors, s.dummySectors)
}

// Run builds the request from rows and posts it to the remote service.
func (s *AnalysisService) Run(ctx context.Context, rows []domain.FeatureRow) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("analysis endpoint: %w", ErrNotConfigured)
	}
	req := s.BuildRequest(rows)
	summary, err := s.client.RunAnalysis(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "analysis request failed",
			slog.Int("observations", req.Len()),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	s.logger.InfoContext(ctx, "analysis completed", slog.Int("observations", req.Len()))
	return summary, nil
}

// Alerts evaluates the alert rules locally. Records without a sector take it
// from the sector map.
func (s *AnalysisService) Alerts(records []analysis.AlertRecord) []analysis.Alert {
	filled := make([]analysis.AlertRecord, len(records))
	for i, rec := range records {
		if rec.Sector == "" {
			rec.Sector, _ = s.sectors.Lookup(rec.Ticker)
		}
		filled[i] = rec
	}
	return s.rules.Evaluate(filled)
}
