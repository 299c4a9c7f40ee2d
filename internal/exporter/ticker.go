package exporter

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"esgpulse/pkg/contracts/domain"
)

// TickerExporter writes per-ticker views of a feature table.
type TickerExporter struct {
	csvWriter *CSVWriter
	marker    string
}

// NewTickerExporter creates a ticker exporter rooted at dir.
func NewTickerExporter(dir, marker string, logger *slog.Logger) *TickerExporter {
	if marker == "" {
		marker = DefaultMissingMarker
	}
	return &TickerExporter{csvWriter: NewCSVWriter(dir, logger), marker: marker}
}

// TickerSummary aggregates the feature rows of one ticker.
type TickerSummary struct {
	Ticker string `json:"ticker"`
	Events int    `json:"events"`
	Rows   int    `json:"rows"`
	// CAR is the sum of present abnormal returns over all event windows.
	CAR            domain.Float `json:"car"`
	MeanAbnormal   domain.Float `json:"mean_abnormal_return"`
	MeanSentiment  domain.Float `json:"mean_sentiment_score"`
	FirstEventDate string       `json:"first_event_date"`
	LastEventDate  string       `json:"last_event_date"`
}

var summaryHeaders = []string{
	"ticker", "events", "rows", "car", "mean_abnormal_return",
	"mean_sentiment_score", "first_event_date", "last_event_date",
}

// ExportTickerFiles writes <TICKER>_features.csv for every ticker and returns
// the paths in ticker order.
func (t *TickerExporter) ExportTickerFiles(rows []domain.FeatureRow) ([]string, error) {
	byTicker := groupByTicker(rows)

	tickers := make([]string, 0, len(byTicker))
	for ticker := range byTicker {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	paths := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		tickerRows := byTicker[ticker]
		sort.SliceStable(tickerRows, func(i, j int) bool {
			return tickerRows[i].Date().Before(tickerRows[j].Date())
		})

		records := make([][]string, 0, len(tickerRows))
		for _, r := range tickerRows {
			records = append(records, r.Record(t.marker))
		}

		path, err := t.csvWriter.WriteCSV(fmt.Sprintf("%s_features.csv", domain.SanitizeFileName(ticker)), WriteOptions{
			Headers: domain.FeatureColumns,
			Records: records,
		})
		if err != nil {
			return paths, fmt.Errorf("failed to write ticker file for %s: %w", ticker, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExportTickerSummary writes the summaries as CSV, sorted by ticker.
func (t *TickerExporter) ExportTickerSummary(summaries []TickerSummary, file string) (string, error) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Ticker < summaries[j].Ticker
	})

	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, []string{
			s.Ticker,
			strconv.Itoa(s.Events),
			strconv.Itoa(s.Rows),
			s.CAR.Format(t.marker),
			s.MeanAbnormal.Format(t.marker),
			s.MeanSentiment.Format(t.marker),
			s.FirstEventDate,
			s.LastEventDate,
		})
	}
	return t.csvWriter.WriteCSV(file, WriteOptions{Headers: summaryHeaders, Records: records})
}

// SummarizeTickers builds one summary per ticker, sorted by ticker. Absent
// values are left out of sums and means; a mean with no inputs is absent.
func SummarizeTickers(rows []domain.FeatureRow) []TickerSummary {
	byTicker := groupByTicker(rows)

	summaries := make([]TickerSummary, 0, len(byTicker))
	for ticker, tickerRows := range byTicker {
		s := TickerSummary{Ticker: ticker, Rows: len(tickerRows)}

		events := make(map[string]domain.Float)
		var first, last time.Time
		var arSum, sentSum float64
		var arN, sentN int
		for _, r := range tickerRows {
			key := r.EventDate.Format(domain.EventDateLayout) + "|" + r.Title
			events[key] = r.SentimentScore

			if first.IsZero() || r.EventDate.Before(first) {
				first = r.EventDate
			}
			if r.EventDate.After(last) {
				last = r.EventDate
			}
			if v, ok := r.AbnormalReturn.Get(); ok {
				arSum += v
				arN++
			}
		}
		for _, score := range events {
			if v, ok := score.Get(); ok {
				sentSum += v
				sentN++
			}
		}

		s.Events = len(events)
		s.FirstEventDate = first.Format(domain.EventDateLayout)
		s.LastEventDate = last.Format(domain.EventDateLayout)
		if arN > 0 {
			s.CAR = domain.Some(arSum)
			s.MeanAbnormal = domain.Some(arSum / float64(arN))
		}
		if sentN > 0 {
			s.MeanSentiment = domain.Some(sentSum / float64(sentN))
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Ticker < summaries[j].Ticker
	})
	return summaries
}

func groupByTicker(rows []domain.FeatureRow) map[string][]domain.FeatureRow {
	out := make(map[string][]domain.FeatureRow)
	for _, r := range rows {
		out[r.Ticker] = append(out[r.Ticker], r)
	}
	return out
}
