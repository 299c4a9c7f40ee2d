package domain

import (
	"fmt"
	"strings"
	"time"
)

// EventDateLayout is the layout of the date prefix of a publish timestamp.
const EventDateLayout = "2006-01-02"

// NewsEvent is one scored headline. It is produced by the sentiment stage and
// never mutated afterwards.
type NewsEvent struct {
	Ticker         string `json:"ticker" validate:"required,ticker"`
	PublishedAt    string `json:"published_at" validate:"required"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	URL            string `json:"url,omitempty"`
	SentimentLabel string `json:"sentiment_label"`
	SentimentScore Float  `json:"sentiment_score"`
}

// EventDate parses the calendar date the event was published on. Only the
// leading YYYY-MM-DD part of the timestamp is used.
func (e NewsEvent) EventDate() (time.Time, error) {
	raw := strings.TrimSpace(e.PublishedAt)
	if len(raw) < len(EventDateLayout) {
		return time.Time{}, fmt.Errorf("published_at %q too short for a date", e.PublishedAt)
	}
	d, err := time.Parse(EventDateLayout, raw[:len(EventDateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("published_at %q: %w", e.PublishedAt, err)
	}
	return d, nil
}
