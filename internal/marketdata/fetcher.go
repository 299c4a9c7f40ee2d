package marketdata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"esgpulse/internal/eventstudy"
)

// Fetcher defaults.
const (
	DefaultTimeout   = 20 * time.Second
	DefaultBackoff   = 500 * time.Millisecond
	DefaultCacheSize = 1024
)

// FetchRecorder observes fetch outcomes, typically for metrics.
type FetchRecorder interface {
	PriceFetched(ctx context.Context, symbol string, cached bool)
}

// FetcherConfig controls a Fetcher.
type FetcherConfig struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	CacheTTL   time.Duration
	CacheSize  int
}

// Fetcher implements eventstudy.PriceFetcher on top of a Provider.
type Fetcher struct {
	provider Provider
	cfg      FetcherConfig
	cache    *SeriesCache
	group    singleflight.Group
	logger   *slog.Logger

	// Recorder is optional.
	Recorder FetchRecorder
}

// NewFetcher wraps provider. MaxRetries of zero or less disables retries;
// other zero values take the package defaults.
func NewFetcher(provider Provider, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	return &Fetcher{
		provider: provider,
		cfg:      cfg,
		cache:    NewSeriesCache(cfg.CacheTTL, cfg.CacheSize),
		logger:   logger.With(slog.String("component", "marketdata"), slog.String("provider", provider.Name())),
	}
}

// ProviderName returns the wrapped provider's name.
func (f *Fetcher) ProviderName() string {
	return f.provider.Name()
}

// Stats returns memo cache counters.
func (f *Fetcher) Stats() CacheStats {
	return f.cache.Stats()
}

// Fetch returns the closing prices of symbol in [start, end]. Concurrent calls
// for the same symbol and range share one provider request.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) (eventstudy.PriceSeries, error) {
	start, end = eventstudy.Day(start), eventstudy.Day(end)
	key := cacheKey(symbol, start, end)

	if s, ok := f.cache.Get(key); ok {
		f.record(ctx, symbol, true)
		return s, nil
	}

	// Only the caller whose closure reaches the provider counts as a miss;
	// callers that joined its flight were served by it.
	executed := false
	v, err, _ := f.group.Do(key, func() (any, error) {
		if s, ok := f.cache.peek(key); ok {
			return s, nil
		}
		executed = true
		s, err := f.fetchWithRetry(ctx, symbol, start, end)
		if err != nil {
			return eventstudy.PriceSeries{}, err
		}
		f.cache.Set(key, s)
		return s, nil
	})
	f.record(ctx, symbol, !executed)
	if err != nil {
		return eventstudy.PriceSeries{}, err
	}
	return v.(eventstudy.PriceSeries), nil
}

func (f *Fetcher) record(ctx context.Context, symbol string, cached bool) {
	if f.Recorder != nil {
		f.Recorder.PriceFetched(ctx, symbol, cached)
	}
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, symbol string, start, end time.Time) (eventstudy.PriceSeries, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * f.cfg.Backoff
			var rl *RateLimitError
			if errors.As(lastErr, &rl) && rl.RetryAfter > wait {
				wait = rl.RetryAfter
			}
			f.logger.DebugContext(ctx, "retrying price fetch",
				slog.String("symbol", symbol),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return eventstudy.PriceSeries{}, f.fail(symbol, start, end, ctx.Err())
			}
		}

		s, err := f.attempt(ctx, symbol, start, end)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return eventstudy.PriceSeries{}, f.fail(symbol, start, end, ctx.Err())
		}
		if !retryable(err) {
			break
		}
	}

	f.logger.WarnContext(ctx, "price fetch failed",
		slog.String("symbol", symbol),
		slog.String("start", start.Format("2006-01-02")),
		slog.String("end", end.Format("2006-01-02")),
		slog.String("error", lastErr.Error()),
	)
	return eventstudy.PriceSeries{}, f.fail(symbol, start, end, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, symbol string, start, end time.Time) (eventstudy.PriceSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	frame, err := f.provider.Frame(ctx, symbol, start, end)
	if err != nil {
		return eventstudy.PriceSeries{}, err
	}
	s, err := CloseSeries(frame, symbol)
	if err != nil {
		return eventstudy.PriceSeries{}, err
	}
	return clip(s, start, end)
}

func (f *Fetcher) fail(symbol string, start, end time.Time, err error) error {
	return &eventstudy.FetchError{Symbol: symbol, Start: start, End: end, Err: err}
}

// retryable reports whether another attempt may succeed. Shape and no-data
// answers are final, as are client errors other than rate limiting.
func retryable(err error) bool {
	if errors.Is(err, eventstudy.ErrDataUnavailable) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

var _ eventstudy.PriceFetcher = (*Fetcher)(nil)

