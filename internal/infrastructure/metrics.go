package infrastructure

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"esgpulse/internal/eventstudy"
	"esgpulse/internal/marketdata"
)

// PipelineMetrics holds the feature pipeline instruments. A nil
// *PipelineMetrics records nothing.
type PipelineMetrics struct {
	EventsProcessed metric.Int64Counter
	EventsSkipped   metric.Int64Counter
	FeatureRows     metric.Int64Counter
	EventDuration   metric.Float64Histogram
	PriceFetches    metric.Int64Counter
	Runs            metric.Int64Counter

	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	WebSocketClients         metric.Int64UpDownCounter
	WebSocketSessionDuration metric.Float64Histogram
	WebSocketDropped         metric.Int64Counter
}

var (
	_ eventstudy.Recorder       = (*PipelineMetrics)(nil)
	_ marketdata.FetchRecorder = (*PipelineMetrics)(nil)
)

// NewPipelineMetrics creates the instruments on meter and registers runtime
// gauges.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	if m.EventsProcessed, err = meter.Int64Counter("events_processed_total",
		metric.WithDescription("News events that produced feature rows")); err != nil {
		return nil, err
	}
	if m.EventsSkipped, err = meter.Int64Counter("events_skipped_total",
		metric.WithDescription("News events skipped, by reason")); err != nil {
		return nil, err
	}
	if m.FeatureRows, err = meter.Int64Counter("feature_rows_total",
		metric.WithDescription("Feature rows emitted")); err != nil {
		return nil, err
	}
	if m.EventDuration, err = meter.Float64Histogram("event_duration_seconds",
		metric.WithDescription("Time spent assembling one event"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.PriceFetches, err = meter.Int64Counter("price_fetch_total",
		metric.WithDescription("Price series requests by symbol and cache outcome")); err != nil {
		return nil, err
	}
	if m.Runs, err = meter.Int64Counter("feature_runs_total",
		metric.WithDescription("Completed feature runs")); err != nil {
		return nil, err
	}
	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.WebSocketClients, err = meter.Int64UpDownCounter("websocket_clients",
		metric.WithDescription("Connected websocket clients")); err != nil {
		return nil, err
	}
	if m.WebSocketSessionDuration, err = meter.Float64Histogram("websocket_session_duration_seconds",
		metric.WithDescription("How long websocket clients stayed connected"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.WebSocketDropped, err = meter.Int64Counter("websocket_messages_dropped_total",
		metric.WithDescription("Broadcasts dropped because the hub queue was full")); err != nil {
		return nil, err
	}

	if err := registerRuntimeGauges(meter); err != nil {
		return nil, err
	}
	return m, nil
}

// EventProcessed implements eventstudy.Recorder.
func (m *PipelineMetrics) EventProcessed(ctx context.Context, _ string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EventsProcessed.Add(ctx, 1)
	m.FeatureRows.Add(ctx, int64(rows))
	m.EventDuration.Record(ctx, elapsed.Seconds())
}

// EventSkipped implements eventstudy.Recorder.
func (m *PipelineMetrics) EventSkipped(ctx context.Context, _ string, reason string) {
	if m == nil {
		return
	}
	m.EventsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// PriceFetched implements marketdata.FetchRecorder.
func (m *PipelineMetrics) PriceFetched(ctx context.Context, symbol string, cached bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if cached {
		outcome = "hit"
	}
	m.PriceFetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("cache", outcome),
	))
}

// RunCompleted counts a finished run; outage marks runs where every event
// failed on price data.
func (m *PipelineMetrics) RunCompleted(ctx context.Context, outage bool) {
	if m == nil {
		return
	}
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.Bool("outage", outage)))
}

// HTTPRequest records one served request.
func (m *PipelineMetrics) HTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ClientConnected implements websocket.ConnRecorder.
func (m *PipelineMetrics) ClientConnected(ctx context.Context) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, 1)
}

// ClientDisconnected implements websocket.ConnRecorder.
func (m *PipelineMetrics) ClientDisconnected(ctx context.Context, connected time.Duration) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, -1)
	m.WebSocketSessionDuration.Record(ctx, connected.Seconds())
}

// MessageDropped implements websocket.ConnRecorder.
func (m *PipelineMetrics) MessageDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.WebSocketDropped.Add(ctx, 1)
}

func registerRuntimeGauges(meter metric.Meter) error {
	goroutines, err := meter.Int64ObservableGauge("system_goroutines",
		metric.WithDescription("Number of active goroutines"))
	if err != nil {
		return err
	}
	heap, err := meter.Int64ObservableGauge("system_memory_allocated_bytes",
		metric.WithDescription("Heap bytes allocated by the Go runtime"),
		metric.WithUnit("By"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(heap, int64(ms.HeapAlloc))
		return nil
	}, goroutines, heap)
	return err
}
