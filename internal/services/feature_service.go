package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"esgpulse/internal/config"
	"esgpulse/internal/eventstudy"
	"esgpulse/internal/exporter"
	"esgpulse/pkg/contracts/domain"
)

// Runner runs the event study over a batch of news events.
type Runner interface {
	Run(ctx context.Context, events []domain.NewsEvent) (*eventstudy.Result, error)
}

// Publisher uploads written artifacts.
type Publisher interface {
	Publish(ctx context.Context, runID string, artifacts []exporter.Artifact) ([]string, error)
}

// RunRecorder observes finished runs.
type RunRecorder interface {
	RunCompleted(ctx context.Context, outage bool)
}

// RunReport is a finished run with the files it produced.
type RunReport struct {
	*eventstudy.Result
	Artifacts []exporter.Artifact      `json:"artifacts,omitempty"`
	Tickers   []exporter.TickerSummary `json:"tickers,omitempty"`
	Uploaded  []string                 `json:"uploaded,omitempty"`
}

// FeatureService runs feature studies one at a time and keeps the latest
// report.
type FeatureService struct {
	runner    Runner
	exporter  *exporter.FeatureExporter
	tickers   *exporter.TickerExporter
	publisher Publisher
	recorder  RunRecorder
	notifier  RunNotifier
	formats   []exporter.Format
	maxEvents int
	timeout   time.Duration
	logger    *slog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	latest  *RunReport
}

// FeatureServiceOption configures a FeatureService.
type FeatureServiceOption func(*FeatureService)

// WithExporter writes every run in the given formats.
func WithExporter(e *exporter.FeatureExporter, formats []exporter.Format) FeatureServiceOption {
	return func(s *FeatureService) {
		s.exporter = e
		s.formats = formats
	}
}

// WithTickerExporter adds per-ticker files and a ticker summary.
func WithTickerExporter(t *exporter.TickerExporter) FeatureServiceOption {
	return func(s *FeatureService) {
		s.tickers = t
	}
}

// WithPublisher uploads exported artifacts after each run.
func WithPublisher(p Publisher) FeatureServiceOption {
	return func(s *FeatureService) {
		s.publisher = p
	}
}

// WithRunRecorder sets the run observer.
func WithRunRecorder(r RunRecorder) FeatureServiceOption {
	return func(s *FeatureService) {
		s.recorder = r
	}
}

// WithNotifier reports every run outcome to n.
func WithNotifier(n RunNotifier) FeatureServiceOption {
	return func(s *FeatureService) {
		s.notifier = n
	}
}

// WithLimits bounds batch size and run duration. Zero values disable a limit.
func WithLimits(maxEvents int, timeout time.Duration) FeatureServiceOption {
	return func(s *FeatureService) {
		s.maxEvents = maxEvents
		s.timeout = timeout
	}
}

// NewFeatureService creates a service around runner.
func NewFeatureService(runner Runner, logger *slog.Logger, opts ...FeatureServiceOption) *FeatureService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FeatureService{
		runner: runner,
		logger: logger.With(slog.String("component", "feature_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether a run is executing.
func (s *FeatureService) Running() bool {
	return s.running.Load()
}

// Latest returns the most recent completed report.
func (s *FeatureService) Latest() (*RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoResult
	}
	return s.latest, nil
}

// Run executes one study. Only one run may execute at a time. A cancelled
// run still returns its partial report together with the context error, and
// the partial report is not stored as latest.
func (s *FeatureService) Run(ctx context.Context, events []domain.NewsEvent) (*RunReport, error) {
	if s.maxEvents > 0 && len(events) > s.maxEvents {
		return nil, fmt.Errorf("%w: %d events, limit %d", ErrTooManyEvents, len(events), s.maxEvents)
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, runErr := s.runner.Run(ctx, events)
	if res == nil {
		s.notifyFailed(ctx, "", runErr)
		return nil, runErr
	}
	report := &RunReport{Result: res}
	if s.recorder != nil {
		s.recorder.RunCompleted(ctx, res.Outage)
	}

	if runErr != nil {
		s.logger.WarnContext(ctx, "feature run interrupted",
			slog.String("run_id", res.RunID),
			slog.Int("rows", len(res.Rows)),
			slog.String("error", runErr.Error()),
		)
		s.notifyFailed(ctx, res.RunID, runErr)
		return report, runErr
	}

	if err := s.export(ctx, report); err != nil {
		s.notifyFailed(ctx, res.RunID, err)
		return report, err
	}

	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	logLevel := slog.LevelInfo
	if len(res.Rows) == 0 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(ctx, logLevel, "feature run completed",
		slog.String("run_id", res.RunID),
		slog.Int("events", res.Stats.Events),
		slog.Int("skipped", res.Stats.Skipped),
		slog.Int("rows", res.Stats.Rows),
		slog.Bool("outage", res.Outage),
		slog.Int("artifacts", len(report.Artifacts)),
	)
	if s.notifier != nil {
		s.notifier.RunCompleted(ctx, report)
	}
	return report, nil
}

func (s *FeatureService) notifyFailed(ctx context.Context, runID string, err error) {
	if s.notifier != nil && err != nil {
		s.notifier.RunFailed(ctx, runID, err)
	}
}

func (s *FeatureService) export(ctx context.Context, report *RunReport) error {
	if s.exporter == nil || len(s.formats) == 0 {
		return nil
	}

	name := config.RunFileName(report.RunID, report.StartedAt)
	artifacts, err := s.exporter.Export(ctx, name, report.Rows, s.formats)
	report.Artifacts = artifacts
	if err != nil {
		return fmt.Errorf("export run %s: %w", report.RunID, err)
	}

	if s.tickers != nil && len(report.Rows) > 0 {
		if _, err := s.tickers.ExportTickerFiles(report.Rows); err != nil {
			return fmt.Errorf("export ticker files: %w", err)
		}
		report.Tickers = exporter.SummarizeTickers(report.Rows)
		path, err := s.tickers.ExportTickerSummary(report.Tickers, name+"_tickers.csv")
		if err != nil {
			return fmt.Errorf("export ticker summary: %w", err)
		}
		summary := exporter.Artifact{Format: exporter.FormatCSV, Path: path}
		if info, err := os.Stat(path); err == nil {
			summary.Size = info.Size()
		}
		report.Artifacts = append(report.Artifacts, summary)
	}

	if s.publisher != nil {
		keys, err := s.publisher.Publish(ctx, report.RunID, report.Artifacts)
		report.Uploaded = keys
		if err != nil {
			return fmt.Errorf("publish run %s: %w", report.RunID, err)
		}
	}
	return nil
}
