package eventstudy

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.Format(dateLayout)
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls on a date inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(r.Start)) && !d.After(Day(r.End))
}

func (r DateRange) String() string {
	return r.Start.Format(dateLayout) + ".." + r.End.Format(dateLayout)
}

// PricePoint is one closing price.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceSeries is a date-ordered sequence of closing prices for one symbol.
// Dates are strictly increasing and unique.
type PriceSeries struct {
	Symbol string
	points []PricePoint
	index  map[string]int
}

// NewPriceSeries builds a series from unordered points. Duplicate dates and
// non-positive or non-finite closes are rejected.
func NewPriceSeries(symbol string, points []PricePoint) (PriceSeries, error) {
	sorted := make([]PricePoint, len(points))
	for i, p := range points {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			return PriceSeries{}, fmt.Errorf("%w: %s close %v on %s is not a valid price",
				ErrDataUnavailable, symbol, p.Close, p.Date.Format(dateLayout))
		}
		sorted[i] = PricePoint{Date: Day(p.Date), Close: p.Close}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	index := make(map[string]int, len(sorted))
	for i, p := range sorted {
		key := dayKey(p.Date)
		if _, dup := index[key]; dup {
			return PriceSeries{}, fmt.Errorf("%w: %s has duplicate date %s", ErrDataUnavailable, symbol, key)
		}
		index[key] = i
	}

	return PriceSeries{Symbol: symbol, points: sorted, index: index}, nil
}

// Len returns the number of trading days.
func (s PriceSeries) Len() int {
	return len(s.points)
}

// Points returns a copy of the points in date order.
func (s PriceSeries) Points() []PricePoint {
	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

// At returns the closing price on date.
func (s PriceSeries) At(date time.Time) (float64, bool) {
	i, ok := s.index[dayKey(date)]
	if !ok {
		return 0, false
	}
	return s.points[i].Close, true
}

// Position returns the positional index of date in the series.
func (s PriceSeries) Position(date time.Time) (int, bool) {
	i, ok := s.index[dayKey(date)]
	return i, ok
}

// Returns derives the percentage-change series. The first date has no return.
func (s PriceSeries) Returns() ReturnSeries {
	rs := ReturnSeries{Symbol: s.Symbol, values: make(map[string]float64, len(s.points))}
	for i := 1; i < len(s.points); i++ {
		prev := s.points[i-1].Close
		cur := s.points[i]
		rs.dates = append(rs.dates, cur.Date)
		rs.values[dayKey(cur.Date)] = cur.Close/prev - 1
	}
	return rs
}

// ReturnSeries is a date-indexed series of daily percentage returns.
type ReturnSeries struct {
	Symbol string
	dates  []time.Time
	values map[string]float64
}

// NewReturnSeries builds a return series directly from date/value pairs.
func NewReturnSeries(symbol string, values map[time.Time]float64) ReturnSeries {
	rs := ReturnSeries{Symbol: symbol, values: make(map[string]float64, len(values))}
	for d, v := range values {
		rs.dates = append(rs.dates, Day(d))
		rs.values[dayKey(d)] = v
	}
	sort.Slice(rs.dates, func(i, j int) bool {
		return rs.dates[i].Before(rs.dates[j])
	})
	return rs
}

// Len returns the number of returns.
func (r ReturnSeries) Len() int {
	return len(r.dates)
}

// Dates returns the dates carrying a return, in order.
func (r ReturnSeries) Dates() []time.Time {
	out := make([]time.Time, len(r.dates))
	copy(out, r.dates)
	return out
}

// At returns the return on date. Dates absent from the series report false.
func (r ReturnSeries) At(date time.Time) (float64, bool) {
	v, ok := r.values[dayKey(date)]
	return v, ok
}

// Momentum returns price[p]/price[p-lookback] - 1 where p is the position of
// date in the series. Absent when date is not a trading day or fewer than
// lookback earlier points exist.
func (s PriceSeries) Momentum(date time.Time, lookback int) (float64, bool) {
	p, ok := s.Position(date)
	if !ok || lookback <= 0 || p < lookback {
		return 0, false
	}
	base := s.points[p-lookback].Close
	return s.points[p].Close/base - 1, true
}
