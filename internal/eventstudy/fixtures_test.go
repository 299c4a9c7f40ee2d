package eventstudy

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

func date(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// weekdays returns n weekdays in ascending order ending on end.
func weekdays(end time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := end; len(out) < n; d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// pricesFromReturns compounds returns onto start. returns[0] is ignored.
func pricesFromReturns(dates []time.Time, start float64, returns []float64) []PricePoint {
	out := make([]PricePoint, len(dates))
	price := start
	for i, d := range dates {
		if i > 0 {
			price *= 1 + returns[i]
		}
		out[i] = PricePoint{Date: d, Close: price}
	}
	return out
}

// marketReturns produces a deterministic return path with non-zero variance.
func marketReturns(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.01 * math.Sin(float64(i)*0.7)
	}
	return out
}

type fakeFetcher struct {
	mu     sync.Mutex
	series map[string][]PricePoint
	errs   map[string]error
	delay  map[string]time.Duration
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		series: map[string][]PricePoint{},
		errs:   map[string]error{},
		delay:  map[string]time.Duration{},
		calls:  map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) (PriceSeries, error) {
	f.mu.Lock()
	f.calls[symbol]++
	err := f.errs[symbol]
	points := f.series[symbol]
	delay := f.delay[symbol]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return PriceSeries{}, ctx.Err()
		}
	}
	if err != nil {
		return PriceSeries{}, err
	}

	rng := DateRange{Start: start, End: end}
	var in []PricePoint
	for _, p := range points {
		if rng.Contains(p.Date) {
			in = append(in, p)
		}
	}
	if len(in) == 0 {
		return PriceSeries{}, &FetchError{Symbol: symbol, Start: start, End: end, Err: fmt.Errorf("no rows")}
	}
	return NewPriceSeries(symbol, in)
}

func (f *fakeFetcher) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

// scenario builds the XYZ/^GSPC/^VIX fixture: 120 weekdays ending 2024-01-19
// where the stock tracks the market exactly except on 2024-01-16, when the
// market returns 0.01 and the stock 0.015.
func scenario() *fakeFetcher {
	dates := weekdays(date("2024-01-19"), 120)
	mkt := marketReturns(len(dates))
	stk := make([]float64, len(dates))
	copy(stk, mkt)
	for i, d := range dates {
		if d.Equal(date("2024-01-16")) {
			mkt[i] = 0.01
			stk[i] = 0.015
		}
	}

	f := newFakeFetcher()
	f.series["XYZ"] = pricesFromReturns(dates, 50, stk)
	f.series["^GSPC"] = pricesFromReturns(dates, 4000, mkt)

	var vix []PricePoint
	for i, d := range dates {
		vix = append(vix, PricePoint{Date: d, Close: 12 + float64(i%5)})
	}
	f.series["^VIX"] = vix
	return f
}

func fixedNow(s string) func() time.Time {
	return func() time.Time { return date(s).Add(12 * time.Hour) }
}
