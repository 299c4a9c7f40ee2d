package marketdata

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"esgpulse/internal/eventstudy"
)

// CloseField is the logical closing-price field name.
const CloseField = "Close"

// ColumnKey names a frame column. Symbol is empty for plain columns.
type ColumnKey struct {
	Field  string
	Symbol string
}

func (k ColumnKey) String() string {
	if k.Symbol == "" {
		return k.Field
	}
	return "(" + k.Field + ", " + k.Symbol + ")"
}

// Frame is a provider's raw daily table: a date index plus untyped columns.
type Frame struct {
	Dates []time.Time
	// Dropped counts source rows skipped for an unparsable date.
	Dropped int

	columns map[ColumnKey][]any
	order   []ColumnKey
}

// NewFrame creates an empty frame over dates.
func NewFrame(dates []time.Time) *Frame {
	return &Frame{Dates: dates, columns: make(map[ColumnKey][]any)}
}

// Set adds or replaces a column. values must align with the date index.
func (f *Frame) Set(key ColumnKey, values []any) error {
	if len(values) != len(f.Dates) {
		return fmt.Errorf("column %s has %d values for %d dates", key, len(values), len(f.Dates))
	}
	if _, exists := f.columns[key]; !exists {
		f.order = append(f.order, key)
	}
	f.columns[key] = values
	return nil
}

// Column returns the values of a column.
func (f *Frame) Column(key ColumnKey) ([]any, bool) {
	v, ok := f.columns[key]
	return v, ok
}

// Keys returns the column keys in insertion order.
func (f *Frame) Keys() []ColumnKey {
	out := make([]ColumnKey, len(f.order))
	copy(out, f.order)
	return out
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Dates)
}

// ResolveClose finds the closing-price column for symbol. A plain "Close"
// column wins over a composite ("Close", symbol) one. Field and symbol are
// compared case-insensitively.
func (f *Frame) ResolveClose(symbol string) (ColumnKey, error) {
	var composite *ColumnKey
	for _, key := range f.order {
		if !strings.EqualFold(strings.TrimSpace(key.Field), CloseField) {
			continue
		}
		if key.Symbol == "" {
			return key, nil
		}
		if composite == nil && strings.EqualFold(strings.TrimSpace(key.Symbol), symbol) {
			k := key
			composite = &k
		}
	}
	if composite != nil {
		return *composite, nil
	}

	names := make([]string, 0, len(f.order))
	for _, key := range f.order {
		names = append(names, key.String())
	}
	return ColumnKey{}, fmt.Errorf("%w: %s has columns [%s]",
		eventstudy.ErrCloseColumnMissing, symbol, strings.Join(names, ", "))
}

// CloseSeries converts a frame into the closing-price series of symbol.
// Cells that normalize to absent or to a non-positive price are dropped.
func CloseSeries(f *Frame, symbol string) (eventstudy.PriceSeries, error) {
	if f.Len() == 0 {
		return eventstudy.PriceSeries{}, fmt.Errorf("%w: %s returned no rows", eventstudy.ErrEmptySeries, symbol)
	}
	key, err := f.ResolveClose(symbol)
	if err != nil {
		return eventstudy.PriceSeries{}, err
	}
	values := f.columns[key]

	seen := make(map[time.Time]struct{}, len(f.Dates))
	points := make([]eventstudy.PricePoint, 0, len(f.Dates))
	for i, d := range f.Dates {
		v := eventstudy.Normalize(values[i])
		if !v.Valid || v.Value <= 0 {
			continue
		}
		day := eventstudy.Day(d)
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		points = append(points, eventstudy.PricePoint{Date: day, Close: v.Value})
	}
	if len(points) == 0 {
		return eventstudy.PriceSeries{}, fmt.Errorf("%w: %s has no usable closing prices", eventstudy.ErrEmptySeries, symbol)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return eventstudy.NewPriceSeries(symbol, points)
}

// clip keeps only points inside the inclusive range.
func clip(s eventstudy.PriceSeries, start, end time.Time) (eventstudy.PriceSeries, error) {
	rng := eventstudy.DateRange{Start: start, End: end}
	var in []eventstudy.PricePoint
	for _, p := range s.Points() {
		if rng.Contains(p.Date) {
			in = append(in, p)
		}
	}
	if len(in) == 0 {
		return eventstudy.PriceSeries{}, fmt.Errorf("%w: %s has no prices in %s", eventstudy.ErrEmptySeries, s.Symbol, rng)
	}
	return eventstudy.NewPriceSeries(s.Symbol, in)
}
