package services

import (
	"context"
	"log/slog"

	"esgpulse/internal/eventstudy"
	"esgpulse/pkg/contracts/events"
)

// WebSocketHub is the part of the websocket hub the services publish to.
type WebSocketHub interface {
	Broadcast(msgType events.MessageType, data interface{})
}

// RunNotifier is told how each run ended.
type RunNotifier interface {
	RunCompleted(ctx context.Context, report *RunReport)
	RunFailed(ctx context.Context, runID string, err error)
}

// RunBroadcaster forwards run progress and outcomes to websocket clients.
type RunBroadcaster struct {
	hub    WebSocketHub
	logger *slog.Logger
}

var _ RunNotifier = (*RunBroadcaster)(nil)

// NewRunBroadcaster creates a broadcaster publishing to hub.
func NewRunBroadcaster(hub WebSocketHub, logger *slog.Logger) *RunBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunBroadcaster{
		hub:    hub,
		logger: logger.With(slog.String("component", "run_broadcaster")),
	}
}

// Progress publishes one finished event. It matches the assembler's
// Progress hook.
func (b *RunBroadcaster) Progress(u eventstudy.ProgressUpdate) {
	b.hub.Broadcast(events.MessageTypeRunProgress, events.RunProgress{
		RunID:  u.RunID,
		Index:  u.Index,
		Total:  u.Total,
		Ticker: u.Ticker,
		Status: u.Status,
		Rows:   u.Rows,
		Reason: u.Reason,
	})
}

// RunCompleted publishes the run summary.
func (b *RunBroadcaster) RunCompleted(ctx context.Context, report *RunReport) {
	if report == nil || report.Result == nil {
		return
	}
	b.logger.DebugContext(ctx, "broadcasting run completion", slog.String("run_id", report.RunID))
	b.hub.Broadcast(events.MessageTypeRunCompleted, events.RunCompleted{
		RunID:      report.RunID,
		Events:     report.Stats.Events,
		Processed:  report.Stats.Processed,
		Skipped:    report.Stats.Skipped,
		Rows:       report.Stats.Rows,
		ByReason:   report.Stats.ByReason,
		Outage:     report.Outage,
		DurationMS: report.Duration.Milliseconds(),
		Artifacts:  len(report.Artifacts),
	})
}

// RunFailed publishes a failed run.
func (b *RunBroadcaster) RunFailed(ctx context.Context, runID string, err error) {
	if err == nil {
		return
	}
	b.logger.DebugContext(ctx, "broadcasting run failure", slog.String("run_id", runID))
	b.hub.Broadcast(events.MessageTypeRunFailed, events.RunFailed{
		RunID: runID,
		Error: err.Error(),
	})
}
