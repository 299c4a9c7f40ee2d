package domain

import (
	"strconv"
	"time"
)

// FeatureColumns is the column order of the flat feature table.
var FeatureColumns = []string{
	"ticker",
	"event_date",
	"window_day",
	"actual_return",
	"expected_return",
	"abnormal_return",
	"momentum",
	"vix",
	"sentiment_label",
	"sentiment_score",
	"title",
}

// FeatureRow is one (event, trading day) observation of the event study.
type FeatureRow struct {
	Ticker         string    `json:"ticker"`
	EventDate      time.Time `json:"event_date"`
	WindowDay      int       `json:"window_day" validate:"min=-3,max=3"`
	ActualReturn   Float     `json:"actual_return"`
	ExpectedReturn Float     `json:"expected_return"`
	AbnormalReturn Float     `json:"abnormal_return"`
	Momentum       Float     `json:"momentum"`
	VIX            Float     `json:"vix"`
	SentimentLabel string    `json:"sentiment_label"`
	SentimentScore Float     `json:"sentiment_score"`
	Title          string    `json:"title"`
}

// Date returns the calendar date the row describes.
func (r FeatureRow) Date() time.Time {
	return r.EventDate.AddDate(0, 0, r.WindowDay)
}

// Record renders the row in FeatureColumns order, writing marker for absent
// values.
func (r FeatureRow) Record(marker string) []string {
	return []string{
		r.Ticker,
		r.EventDate.Format(EventDateLayout),
		strconv.Itoa(r.WindowDay),
		r.ActualReturn.Format(marker),
		r.ExpectedReturn.Format(marker),
		r.AbnormalReturn.Format(marker),
		r.Momentum.Format(marker),
		r.VIX.Format(marker),
		r.SentimentLabel,
		r.SentimentScore.Format(marker),
		r.Title,
	}
}
