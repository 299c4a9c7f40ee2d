package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"esgpulse/internal/eventstudy"
	"esgpulse/pkg/contracts/events"
)

func TestRunBroadcaster_Progress(t *testing.T) {
	hub := new(MockWebSocketHub)
	hub.On("Broadcast", events.MessageTypeRunProgress, events.RunProgress{
		RunID:  "run-1",
		Index:  2,
		Total:  5,
		Ticker: "XYZ",
		Status: eventstudy.StatusSkipped,
		Reason: "insufficient_data",
	}).Once()

	b := NewRunBroadcaster(hub, quietLogger())
	b.Progress(eventstudy.ProgressUpdate{
		RunID:  "run-1",
		Index:  2,
		Total:  5,
		Ticker: "XYZ",
		Status: eventstudy.StatusSkipped,
		Reason: "insufficient_data",
	})

	hub.AssertExpectations(t)
}

func TestRunBroadcaster_RunCompleted(t *testing.T) {
	res := sampleResult(4)
	res.Duration = 1500 * time.Millisecond
	res.Stats.Skipped = 2
	res.Stats.ByReason = map[string]int{"data_unavailable": 2}
	report := &RunReport{Result: res}

	hub := new(MockWebSocketHub)
	hub.On("Broadcast", events.MessageTypeRunCompleted, mock.MatchedBy(func(d events.RunCompleted) bool {
		return d.RunID == res.RunID &&
			d.Rows == 4 &&
			d.Skipped == 2 &&
			d.ByReason["data_unavailable"] == 2 &&
			d.DurationMS == 1500
	})).Once()

	b := NewRunBroadcaster(hub, quietLogger())
	b.RunCompleted(context.Background(), report)
	b.RunCompleted(context.Background(), nil)

	hub.AssertExpectations(t)
}

func TestRunBroadcaster_RunFailed(t *testing.T) {
	hub := new(MockWebSocketHub)
	hub.On("Broadcast", events.MessageTypeRunFailed, events.RunFailed{
		RunID: "run-9",
		Error: "boom",
	}).Once()

	b := NewRunBroadcaster(hub, quietLogger())
	b.RunFailed(context.Background(), "run-9", errors.New("boom"))
	b.RunFailed(context.Background(), "run-9", nil)

	hub.AssertExpectations(t)
	hub.AssertNumberOfCalls(t, "Broadcast", 1)
}

func TestFeatureService_Notifier(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		runner := new(MockRunner)
		notifier := new(MockRunNotifier)
		batch := sampleEvents(1)
		runner.On("Run", mock.Anything, batch).Return(sampleResult(2), nil).Once()
		notifier.On("RunCompleted", mock.Anything, mock.AnythingOfType("*services.RunReport")).Once()

		svc := NewFeatureService(runner, quietLogger(), WithNotifier(notifier))
		_, err := svc.Run(context.Background(), batch)

		assert.NoError(t, err)
		notifier.AssertExpectations(t)
	})

	t.Run("runner error", func(t *testing.T) {
		runner := new(MockRunner)
		notifier := new(MockRunNotifier)
		batch := sampleEvents(1)
		runErr := errors.New("market down")
		runner.On("Run", mock.Anything, batch).Return(nil, runErr).Once()
		notifier.On("RunFailed", mock.Anything, "", runErr).Once()

		svc := NewFeatureService(runner, quietLogger(), WithNotifier(notifier))
		_, err := svc.Run(context.Background(), batch)

		assert.ErrorIs(t, err, runErr)
		notifier.AssertExpectations(t)
		notifier.AssertNotCalled(t, "RunCompleted", mock.Anything, mock.Anything)
	})

	t.Run("cancelled", func(t *testing.T) {
		runner := new(MockRunner)
		notifier := new(MockRunNotifier)
		batch := sampleEvents(1)
		res := sampleResult(1)
		runner.On("Run", mock.Anything, batch).Return(res, context.Canceled).Once()
		notifier.On("RunFailed", mock.Anything, res.RunID, context.Canceled).Once()

		svc := NewFeatureService(runner, quietLogger(), WithNotifier(notifier))
		report, err := svc.Run(context.Background(), batch)

		assert.ErrorIs(t, err, context.Canceled)
		assert.NotNil(t, report)
		notifier.AssertExpectations(t)
	})
}
