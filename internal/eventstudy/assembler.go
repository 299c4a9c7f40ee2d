package eventstudy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"esgpulse/pkg/contracts/domain"
)

// TracerName is the OpenTelemetry instrumentation scope of the assembler.
const TracerName = "esgpulse.eventstudy"

// MomentumLookback is the number of trading days momentum looks back over.
const MomentumLookback = 5

// DefaultConcurrency bounds the number of events processed at once.
const DefaultConcurrency = 4

// PriceFetcher returns closing prices for a symbol over an inclusive date range.
type PriceFetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (PriceSeries, error)
}

// Recorder receives per-event outcomes, typically for metrics.
type Recorder interface {
	EventProcessed(ctx context.Context, ticker string, rows int, elapsed time.Duration)
	EventSkipped(ctx context.Context, ticker, reason string)
}

// Config controls an Assembler.
type Config struct {
	MarketSymbol     string
	VolatilitySymbol string
	Concurrency      int
}

// ProgressUpdate describes one finished event.
type ProgressUpdate struct {
	RunID  string `json:"run_id"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Ticker string `json:"ticker"`
	Status string `json:"status"`
	Rows   int    `json:"rows"`
	Reason string `json:"reason,omitempty"`
}

// Progress statuses.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
)

// Skip records why an event produced no rows.
type Skip struct {
	Index     int    `json:"index"`
	Ticker    string `json:"ticker"`
	EventDate string `json:"event_date"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

// Stats summarizes a run.
type Stats struct {
	Events    int            `json:"events"`
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Rows      int            `json:"rows"`
	ByReason  map[string]int `json:"by_reason"`
}

// Result is the output of one assembler run.
type Result struct {
	RunID     string              `json:"run_id"`
	Rows      []domain.FeatureRow `json:"rows"`
	Skips     []Skip              `json:"skips"`
	Stats     Stats               `json:"stats"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	// Outage is set when nothing was produced and every event failed to fetch.
	Outage bool `json:"outage"`
}

// Assembler turns news events into event-study feature rows.
type Assembler struct {
	fetcher PriceFetcher
	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer

	// Now is the clock used to reject future events.
	Now func() time.Time
	// Recorder is optional.
	Recorder Recorder
	// Progress is called once per finished event. It may be called from
	// several goroutines.
	Progress func(ProgressUpdate)
}

// NewAssembler creates an assembler reading prices through fetcher.
func NewAssembler(fetcher PriceFetcher, cfg Config, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MarketSymbol == "" {
		cfg.MarketSymbol = "^GSPC"
	}
	if cfg.VolatilitySymbol == "" {
		cfg.VolatilitySymbol = "^VIX"
	}
	return &Assembler{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "eventstudy")),
		tracer:  otel.Tracer(TracerName),
		Now:     time.Now,
	}
}

type eventOutcome struct {
	rows []domain.FeatureRow
	skip *Skip
}

// Run processes events concurrently and merges their rows in event order, then
// offset order. Event-level failures are recorded as skips. The returned error
// is non-nil only when ctx is cancelled; the partial result is still returned.
func (a *Assembler) Run(ctx context.Context, events []domain.NewsEvent) (*Result, error) {
	res := &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Rows:      []domain.FeatureRow{},
		Skips:     []Skip{},
	}

	ctx, span := a.tracer.Start(ctx, "eventstudy.Run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", res.RunID),
			attribute.Int("run.events", len(events)),
		),
	)
	defer span.End()

	log := a.logger.With(slog.String("run_id", res.RunID))
	log.InfoContext(ctx, "event study run started", slog.Int("events", len(events)))

	slots := make([]eventOutcome, len(events))

	g := new(errgroup.Group)
	g.SetLimit(a.cfg.Concurrency)
	for i := range events {
		if ctx.Err() != nil {
			slots[i] = eventOutcome{skip: a.newSkip(i, events[i], "", ErrCancelled)}
			a.report(ctx, res.RunID, len(events), i, events[i], slots[i])
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				slots[i] = eventOutcome{skip: a.newSkip(i, events[i], "", ErrCancelled)}
			} else {
				slots[i] = a.processEvent(ctx, log, i, events[i])
			}
			a.report(ctx, res.RunID, len(events), i, events[i], slots[i])
			return nil
		})
	}
	_ = g.Wait()

	res.Stats = Stats{Events: len(events), ByReason: map[string]int{}}
	fetchFailures := 0
	for _, slot := range slots {
		if slot.skip != nil {
			res.Skips = append(res.Skips, *slot.skip)
			res.Stats.Skipped++
			res.Stats.ByReason[slot.skip.Reason]++
			if slot.skip.Reason == ReasonDataUnavailable {
				fetchFailures++
			}
			continue
		}
		res.Stats.Processed++
		res.Rows = append(res.Rows, slot.rows...)
	}
	res.Stats.Rows = len(res.Rows)
	res.Duration = time.Since(res.StartedAt)

	if len(events) > 0 && len(res.Rows) == 0 {
		res.Outage = fetchFailures == len(events)
		log.WarnContext(ctx, fmt.Sprintf("%d of %d events produced data", 0, len(events)),
			slog.Bool("outage", res.Outage),
			slog.Any("by_reason", res.Stats.ByReason),
		)
	}

	span.SetAttributes(
		attribute.Int("run.rows", res.Stats.Rows),
		attribute.Int("run.skipped", res.Stats.Skipped),
	)
	log.InfoContext(ctx, "event study run completed",
		slog.Int("processed", res.Stats.Processed),
		slog.Int("skipped", res.Stats.Skipped),
		slog.Int("rows", res.Stats.Rows),
		slog.Duration("duration", res.Duration),
	)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return res, fmt.Errorf("event study run cancelled: %w", err)
	}
	return res, nil
}

func (a *Assembler) report(ctx context.Context, runID string, total, index int, ev domain.NewsEvent, out eventOutcome) {
	update := ProgressUpdate{
		RunID:  runID,
		Index:  index,
		Total:  total,
		Ticker: ev.Ticker,
		Status: StatusProcessed,
		Rows:   len(out.rows),
	}
	if out.skip != nil {
		update.Status = StatusSkipped
		update.Reason = out.skip.Reason
		if a.Recorder != nil {
			a.Recorder.EventSkipped(ctx, ev.Ticker, out.skip.Reason)
		}
	}
	if a.Progress != nil {
		a.Progress(update)
	}
}

func (a *Assembler) newSkip(index int, ev domain.NewsEvent, eventDate string, err error) *Skip {
	if eventDate == "" {
		eventDate = ev.PublishedAt
	}
	return &Skip{
		Index:     index,
		Ticker:    ev.Ticker,
		EventDate: eventDate,
		Reason:    Reason(err),
		Err:       err,
		Message:   err.Error(),
	}
}

func (a *Assembler) processEvent(ctx context.Context, log *slog.Logger, index int, ev domain.NewsEvent) eventOutcome {
	start := time.Now()
	log = log.With(slog.String("ticker", ev.Ticker), slog.Int("index", index))

	ctx, span := a.tracer.Start(ctx, "eventstudy.Event",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("event.ticker", ev.Ticker),
			attribute.String("event.published_at", ev.PublishedAt),
		),
	)
	defer span.End()

	rows, eventDate, err := a.assemble(ctx, log, ev)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ErrCancelled) {
			err = fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		skip := a.newSkip(index, ev, eventDate, err)
		span.SetStatus(codes.Error, skip.Reason)
		log.WarnContext(ctx, "event skipped",
			slog.String("event_date", skip.EventDate),
			slog.String("reason", skip.Reason),
			slog.String("error", err.Error()),
		)
		return eventOutcome{skip: skip}
	}

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("event.rows", len(rows)))
	if a.Recorder != nil {
		a.Recorder.EventProcessed(ctx, ev.Ticker, len(rows), elapsed)
	}
	log.DebugContext(ctx, "event processed",
		slog.String("event_date", eventDate),
		slog.Int("rows", len(rows)),
		slog.Duration("elapsed", elapsed),
	)
	return eventOutcome{rows: rows}
}

func (a *Assembler) assemble(ctx context.Context, log *slog.Logger, ev domain.NewsEvent) ([]domain.FeatureRow, string, error) {
	date, err := ev.EventDate()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDateParse, err)
	}
	eventDate := date.Format(dateLayout)
	if Day(date).After(Day(a.Now())) {
		return nil, eventDate, fmt.Errorf("%w: %s", ErrFutureEvent, eventDate)
	}

	w := Plan(date)
	full := w.Span()

	stock, err := a.fetcher.Fetch(ctx, ev.Ticker, full.Start, full.End)
	if err != nil {
		return nil, eventDate, err
	}
	market, err := a.fetcher.Fetch(ctx, a.cfg.MarketSymbol, full.Start, full.End)
	if err != nil {
		return nil, eventDate, err
	}
	vix, err := a.fetcher.Fetch(ctx, a.cfg.VolatilitySymbol, w.WindowStart, w.WindowEnd)
	if err != nil {
		if !errors.Is(err, ErrCloseColumnMissing) && !errors.Is(err, ErrEmptySeries) {
			return nil, eventDate, err
		}
		log.WarnContext(ctx, "volatility index unusable, vix will be absent",
			slog.String("symbol", a.cfg.VolatilitySymbol),
			slog.String("error", err.Error()),
		)
		vix = PriceSeries{Symbol: a.cfg.VolatilitySymbol}
	}

	stockReturns := stock.Returns()
	marketReturns := market.Returns()
	model, err := Fit(stockReturns, marketReturns, w.Estimation())
	if err != nil {
		return nil, eventDate, fmt.Errorf("%s: %w", ev.Ticker, err)
	}
	log.DebugContext(ctx, "market model fitted",
		slog.Float64("alpha", model.Alpha),
		slog.Float64("beta", model.Beta),
		slog.Int("observations", model.Observations),
	)

	rows := make([]domain.FeatureRow, 0, LastOffset-FirstOffset+1)
	for _, offset := range Offsets() {
		day := w.EventDate.AddDate(0, 0, offset)
		stockRet, ok := stockReturns.At(day)
		if !ok {
			log.DebugContext(ctx, "no stock return, day skipped", slog.Int("offset", offset))
			continue
		}
		marketRet, ok := marketReturns.At(day)
		if !ok {
			log.DebugContext(ctx, "no market return, day skipped", slog.Int("offset", offset))
			continue
		}

		actual := Normalize(stockRet)
		expected := Normalize(model.Expected(marketRet))
		abnormal := domain.None()
		if actual.Valid && expected.Valid {
			abnormal = domain.Some(actual.Value - expected.Value)
		}

		momentum := domain.None()
		if m, ok := stock.Momentum(day, MomentumLookback); ok {
			momentum = Normalize(m)
		}

		vixValue := domain.None()
		if v, ok := vix.At(day); ok {
			vixValue = Normalize(v)
		}

		rows = append(rows, domain.FeatureRow{
			Ticker:         ev.Ticker,
			EventDate:      w.EventDate,
			WindowDay:      offset,
			ActualReturn:   actual,
			ExpectedReturn: expected,
			AbnormalReturn: abnormal,
			Momentum:       momentum,
			VIX:            vixValue,
			SentimentLabel: ev.SentimentLabel,
			SentimentScore: ev.SentimentScore,
			Title:          ev.Title,
		})
	}
	return rows, eventDate, nil
}
