package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider returns raw daily bars for a symbol over an inclusive date range.
type Provider interface {
	Name() string
	Frame(ctx context.Context, symbol string, start, end time.Time) (*Frame, error)
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
}

// parseDate accepts the date layouts written by common price exporters.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", s)
}
