package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"esgpulse/internal/analysis"
	"esgpulse/internal/eventstudy"
	"esgpulse/internal/exporter"
	"esgpulse/internal/marketdata"
	"esgpulse/pkg/contracts/domain"
	"esgpulse/pkg/contracts/events"
)

// MockRunner is a mock for the Runner interface
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, events []domain.NewsEvent) (*eventstudy.Result, error) {
	args := m.Called(ctx, events)
	res, _ := args.Get(0).(*eventstudy.Result)
	return res, args.Error(1)
}

// MockPublisher is a mock for the Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, runID string, artifacts []exporter.Artifact) ([]string, error) {
	args := m.Called(ctx, runID, artifacts)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

// MockRunRecorder is a mock for the RunRecorder interface
type MockRunRecorder struct {
	mock.Mock
}

func (m *MockRunRecorder) RunCompleted(ctx context.Context, outage bool) {
	m.Called(ctx, outage)
}

// MockAnalysisRunner is a mock for the AnalysisRunner interface
type MockAnalysisRunner struct {
	mock.Mock
}

func (m *MockAnalysisRunner) RunAnalysis(ctx context.Context, req analysis.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockWebSocketHub is a mock for the WebSocketHub interface
type MockWebSocketHub struct {
	mock.Mock
}

func (m *MockWebSocketHub) Broadcast(msgType events.MessageType, data interface{}) {
	m.Called(msgType, data)
}

// MockRunNotifier is a mock for the RunNotifier interface
type MockRunNotifier struct {
	mock.Mock
}

func (m *MockRunNotifier) RunCompleted(ctx context.Context, report *RunReport) {
	m.Called(ctx, report)
}

func (m *MockRunNotifier) RunFailed(ctx context.Context, runID string, err error) {
	m.Called(ctx, runID, err)
}

type stubPriceSource struct {
	name  string
	stats marketdata.CacheStats
}

func (s stubPriceSource) ProviderName() string        { return s.name }
func (s stubPriceSource) Stats() marketdata.CacheStats { return s.stats }

type stubCounter int

func (c stubCounter) ClientCount() int { return int(c) }

func sampleResult(rows int) *eventstudy.Result {
	res := &eventstudy.Result{
		RunID:     "0f8e7d6c-aaaa-bbbb-cccc-000000000001",
		StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Rows:      []domain.FeatureRow{},
		Skips:     []eventstudy.Skip{},
		Stats:     eventstudy.Stats{Events: 1, Processed: 1, ByReason: map[string]int{}},
	}
	eventDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		res.Rows = append(res.Rows, domain.FeatureRow{
			Ticker:         "XYZ",
			EventDate:      eventDate,
			WindowDay:      i - rows/2,
			ActualReturn:   domain.Some(0.015),
			ExpectedReturn: domain.Some(0.01),
			AbnormalReturn: domain.Some(0.005),
			Momentum:       domain.None(),
			VIX:            domain.Some(14.2),
			SentimentLabel: "negative",
			SentimentScore: domain.Some(-0.8),
			Title:          "XYZ fined over emissions",
		})
	}
	res.Stats.Rows = rows
	return res
}
