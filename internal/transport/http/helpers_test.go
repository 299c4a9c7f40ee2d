package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"esgpulse/internal/analysis"
	apierrors "esgpulse/internal/errors"
	"esgpulse/internal/eventstudy"
	"esgpulse/internal/middleware"
	"esgpulse/internal/services"
	"esgpulse/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeps() (*middleware.Validator, *apierrors.ErrorHandler) {
	return middleware.NewValidator(quietLogger(), 0), apierrors.NewErrorHandler(quietLogger(), false)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// MockFeatureRunner is a mock for the FeatureRunner interface
type MockFeatureRunner struct {
	mock.Mock
}

func (m *MockFeatureRunner) Run(ctx context.Context, events []domain.NewsEvent) (*services.RunReport, error) {
	args := m.Called(ctx, events)
	report, _ := args.Get(0).(*services.RunReport)
	return report, args.Error(1)
}

func (m *MockFeatureRunner) Latest() (*services.RunReport, error) {
	args := m.Called()
	report, _ := args.Get(0).(*services.RunReport)
	return report, args.Error(1)
}

// MockAnalysisProvider is a mock for the AnalysisProvider interface
type MockAnalysisProvider struct {
	mock.Mock
}

func (m *MockAnalysisProvider) BuildRequest(rows []domain.FeatureRow) analysis.Request {
	return m.Called(rows).Get(0).(analysis.Request)
}

func (m *MockAnalysisProvider) Run(ctx context.Context, rows []domain.FeatureRow) (string, error) {
	args := m.Called(ctx, rows)
	return args.String(0), args.Error(1)
}

func (m *MockAnalysisProvider) Alerts(records []analysis.AlertRecord) []analysis.Alert {
	return m.Called(records).Get(0).([]analysis.Alert)
}

func sampleReport() *services.RunReport {
	eventDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return &services.RunReport{
		Result: &eventstudy.Result{
			RunID:     "0f8e7d6c-aaaa-bbbb-cccc-000000000001",
			StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Rows: []domain.FeatureRow{
				{
					Ticker:         "XYZ",
					EventDate:      eventDate,
					WindowDay:      1,
					ActualReturn:   domain.Some(0.015),
					ExpectedReturn: domain.Some(0.01),
					AbnormalReturn: domain.Some(0.005),
					Momentum:       domain.None(),
					VIX:            domain.Some(14.2),
					SentimentLabel: "negative",
					SentimentScore: domain.Some(-0.8),
					Title:          "XYZ fined over emissions",
				},
			},
			Skips: []eventstudy.Skip{},
			Stats: eventstudy.Stats{Events: 1, Processed: 1, Rows: 1, ByReason: map[string]int{}},
		},
	}
}
