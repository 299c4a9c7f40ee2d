package eventstudy

import (
	"errors"
	"fmt"
	"time"
)

// Event-scoped errors. All of them are recoverable: the assembler records the
// event as skipped and continues the batch.
var (
	// ErrDataUnavailable means the provider returned nothing or a shape that
	// could not be read for a symbol and range.
	ErrDataUnavailable = errors.New("price data unavailable")
	// ErrInsufficientData means the estimation window holds fewer paired
	// observations than MinEstimationObservations.
	ErrInsufficientData = errors.New("insufficient estimation data")
	// ErrDateParse means the event's publish date is malformed.
	ErrDateParse = errors.New("event date parse error")
	// ErrFutureEvent means the event date lies after the current date.
	ErrFutureEvent = errors.New("event date is in the future")
	// ErrCancelled marks events never started because the run was cancelled.
	ErrCancelled = errors.New("run cancelled")
)

// Skip reasons as reported in Stats.ByReason and progress updates.
const (
	ReasonDataUnavailable  = "data_unavailable"
	ReasonInsufficientData = "insufficient_data"
	ReasonDateParse        = "date_parse"
	ReasonFutureEvent      = "future_event"
	ReasonCancelled        = "cancelled"
	ReasonUnknown          = "unknown"
)

// Reason classifies an event-scoped error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrDataUnavailable):
		return ReasonDataUnavailable
	case errors.Is(err, ErrInsufficientData):
		return ReasonInsufficientData
	case errors.Is(err, ErrDateParse):
		return ReasonDateParse
	case errors.Is(err, ErrFutureEvent):
		return ReasonFutureEvent
	case errors.Is(err, ErrCancelled):
		return ReasonCancelled
	default:
		return ReasonUnknown
	}
}

// FetchError describes a failed price fetch for one symbol and range.
type FetchError struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s [%s..%s]: %v", e.Symbol,
		e.Start.Format(dateLayout), e.End.Format(dateLayout), e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports FetchError as ErrDataUnavailable so callers can classify it
// without inspecting the provider's own error types.
func (e *FetchError) Is(target error) bool {
	return target == ErrDataUnavailable
}

// Shape errors reported by price adapters. Both are ErrDataUnavailable.
var (
	// ErrCloseColumnMissing means a provider frame had no recognizable
	// closing price column.
	ErrCloseColumnMissing = fmt.Errorf("%w: close column missing", ErrDataUnavailable)
	// ErrEmptySeries means the provider answered without any usable price in
	// the requested range.
	ErrEmptySeries = fmt.Errorf("%w: empty series", ErrDataUnavailable)
)
