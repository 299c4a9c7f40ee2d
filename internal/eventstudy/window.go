package eventstudy

import "time"

// Window offsets in calendar days relative to the event date.
const (
	EstimationLookback = 80
	EstimationGap      = 6
	WindowBefore       = 5
	WindowAfter        = 5
)

// Event-window day offsets that produce feature rows.
const (
	FirstOffset = -3
	LastOffset  = 3
)

// EventWindow holds the calendar boundaries derived from one event date.
type EventWindow struct {
	EventDate       time.Time
	EstimationStart time.Time
	EstimationEnd   time.Time
	WindowStart     time.Time
	WindowEnd       time.Time
}

// Plan derives the estimation and event windows for an event date.
func Plan(eventDate time.Time) EventWindow {
	d := Day(eventDate)
	return EventWindow{
		EventDate:       d,
		EstimationStart: d.AddDate(0, 0, -EstimationLookback),
		EstimationEnd:   d.AddDate(0, 0, -EstimationGap),
		WindowStart:     d.AddDate(0, 0, -WindowBefore),
		WindowEnd:       d.AddDate(0, 0, WindowAfter),
	}
}

// Estimation returns the estimation sub-range.
func (w EventWindow) Estimation() DateRange {
	return DateRange{Start: w.EstimationStart, End: w.EstimationEnd}
}

// Event returns the short window around the event.
func (w EventWindow) Event() DateRange {
	return DateRange{Start: w.WindowStart, End: w.WindowEnd}
}

// Span returns the full range price series must cover.
func (w EventWindow) Span() DateRange {
	return DateRange{Start: w.EstimationStart, End: w.WindowEnd}
}

// Valid reports whether the boundaries are strictly ordered.
func (w EventWindow) Valid() bool {
	return w.EstimationStart.Before(w.EstimationEnd) &&
		w.EstimationEnd.Before(w.WindowStart) &&
		!w.WindowStart.After(w.EventDate) &&
		!w.EventDate.After(w.WindowEnd)
}

// Offsets returns the event-window day offsets in emission order.
func Offsets() []int {
	out := make([]int, 0, LastOffset-FirstOffset+1)
	for o := FirstOffset; o <= LastOffset; o++ {
		out = append(out, o)
	}
	return out
}
