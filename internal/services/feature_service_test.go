package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"esgpulse/internal/eventstudy"
	"esgpulse/internal/exporter"
	"esgpulse/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvents(n int) []domain.NewsEvent {
	events := make([]domain.NewsEvent, n)
	for i := range events {
		events[i] = domain.NewsEvent{Ticker: "XYZ", PublishedAt: "2024-01-15T09:30:00Z", Title: "XYZ fined over emissions"}
	}
	return events
}

func TestFeatureService_Run(t *testing.T) {
	runner := new(MockRunner)
	recorder := new(MockRunRecorder)
	events := sampleEvents(1)
	res := sampleResult(7)

	runner.On("Run", mock.Anything, events).Return(res, nil).Once()
	recorder.On("RunCompleted", mock.Anything, false).Once()

	svc := NewFeatureService(runner, quietLogger(), WithRunRecorder(recorder))

	_, err := svc.Latest()
	require.ErrorIs(t, err, ErrNoResult)

	report, err := svc.Run(context.Background(), events)
	require.NoError(t, err)
	assert.Len(t, report.Rows, 7)
	assert.Empty(t, report.Artifacts)
	assert.False(t, svc.Running())

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, res.RunID, latest.RunID)

	runner.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestFeatureService_ExportAndPublish(t *testing.T) {
	dir := t.TempDir()
	runner := new(MockRunner)
	publisher := new(MockPublisher)
	res := sampleResult(7)

	runner.On("Run", mock.Anything, mock.Anything).Return(res, nil)
	publisher.On("Publish", mock.Anything, res.RunID, mock.MatchedBy(func(a []exporter.Artifact) bool {
		return len(a) == 3
	})).Return([]string{"k1", "k2", "k3"}, nil)

	svc := NewFeatureService(runner, quietLogger(),
		WithExporter(exporter.NewFeatureExporter(dir, "NA", quietLogger()), []exporter.Format{exporter.FormatCSV, exporter.FormatJSON}),
		WithTickerExporter(exporter.NewTickerExporter(dir, "NA", quietLogger())),
		WithPublisher(publisher),
	)

	report, err := svc.Run(context.Background(), sampleEvents(1))
	require.NoError(t, err)

	require.Len(t, report.Artifacts, 3)
	assert.Equal(t, filepath.Join(dir, "features_20240301T120000Z_0f8e7d6c.csv"), report.Artifacts[0].Path)
	assert.Equal(t, filepath.Join(dir, "features_20240301T120000Z_0f8e7d6c.json"), report.Artifacts[1].Path)
	assert.Equal(t, filepath.Join(dir, "features_20240301T120000Z_0f8e7d6c_tickers.csv"), report.Artifacts[2].Path)
	assert.Positive(t, report.Artifacts[2].Size)
	assert.Equal(t, []string{"k1", "k2", "k3"}, report.Uploaded)

	require.Len(t, report.Tickers, 1)
	assert.Equal(t, "XYZ", report.Tickers[0].Ticker)
	assert.FileExists(t, filepath.Join(dir, "XYZ_features.csv"))

	publisher.AssertExpectations(t)
}

func TestFeatureService_PublishFailure(t *testing.T) {
	runner := new(MockRunner)
	publisher := new(MockPublisher)
	runner.On("Run", mock.Anything, mock.Anything).Return(sampleResult(1), nil)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("access denied"))

	svc := NewFeatureService(runner, quietLogger(),
		WithExporter(exporter.NewFeatureExporter(t.TempDir(), "", nil), []exporter.Format{exporter.FormatCSV}),
		WithPublisher(publisher),
	)

	report, err := svc.Run(context.Background(), sampleEvents(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	require.NotNil(t, report)
	assert.Len(t, report.Artifacts, 1)

	_, err = svc.Latest()
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestFeatureService_RejectsConcurrentRun(t *testing.T) {
	runner := new(MockRunner)
	started := make(chan struct{})
	release := make(chan struct{})

	runner.On("Run", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(sampleResult(0), nil).Once()

	svc := NewFeatureService(runner, quietLogger())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), sampleEvents(1))
		done <- err
	}()

	<-started
	assert.True(t, svc.Running())
	_, err := svc.Run(context.Background(), sampleEvents(1))
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, svc.Running())
	runner.AssertNumberOfCalls(t, "Run", 1)
}

func TestFeatureService_Limits(t *testing.T) {
	t.Run("too many events", func(t *testing.T) {
		runner := new(MockRunner)
		svc := NewFeatureService(runner, quietLogger(), WithLimits(2, 0))

		_, err := svc.Run(context.Background(), sampleEvents(3))
		assert.ErrorIs(t, err, ErrTooManyEvents)
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("timeout applied to runner context", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		}), mock.Anything).Return(sampleResult(0), nil)

		svc := NewFeatureService(runner, quietLogger(), WithLimits(0, time.Minute))
		_, err := svc.Run(context.Background(), sampleEvents(1))
		require.NoError(t, err)
		runner.AssertExpectations(t)
	})
}

func TestFeatureService_CancelledRun(t *testing.T) {
	runner := new(MockRunner)
	partial := sampleResult(2)
	partial.Skips = []eventstudy.Skip{{Index: 1, Ticker: "ABC", Reason: eventstudy.ReasonCancelled}}
	runner.On("Run", mock.Anything, mock.Anything).
		Return(partial, fmt.Errorf("%w: %v", eventstudy.ErrCancelled, context.Canceled))

	dir := t.TempDir()
	svc := NewFeatureService(runner, quietLogger(),
		WithExporter(exporter.NewFeatureExporter(dir, "NA", nil), []exporter.Format{exporter.FormatCSV}))

	report, err := svc.Run(context.Background(), sampleEvents(2))
	require.ErrorIs(t, err, eventstudy.ErrCancelled)
	require.NotNil(t, report)
	assert.Len(t, report.Rows, 2)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "partial runs are not exported")

	_, err = svc.Latest()
	assert.ErrorIs(t, err, ErrNoResult)
}
