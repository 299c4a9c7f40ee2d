// Package news reads headline tables and attaches sentiment to them.
package news

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"esgpulse/internal/eventstudy"
	"esgpulse/pkg/contracts/domain"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// Header names written by WriteCSV.
var scoredHeader = []string{"ticker", "title", "description", "publishedAt", "url", "sentiment_label", "sentiment_score"}

var columnAliases = map[string]string{
	"ticker":          "ticker",
	"symbol":          "ticker",
	"title":           "title",
	"headline":        "title",
	"description":     "description",
	"publishedat":     "published_at",
	"published_at":    "published_at",
	"date":            "published_at",
	"url":             "url",
	"sentiment_label": "sentiment_label",
	"label":           "sentiment_label",
	"sentiment_score": "sentiment_score",
	"score":           "sentiment_score",
}

// Table is a loaded headline table.
type Table struct {
	Events []domain.NewsEvent
	// Scored is true when the source carried sentiment columns.
	Scored bool
}

// LoadFile reads a headline CSV from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open news file: %w", err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Load reads a headline CSV. Column names are matched case-insensitively;
// ticker, title and publishedAt are required. Rows with an empty ticker are
// dropped.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := columnAliases[key]; ok {
			if _, dup := idx[canonical]; !dup {
				idx[canonical] = i
			}
		}
	}
	for _, required := range []string{"ticker", "title", "published_at"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	_, hasLabel := idx["sentiment_label"]
	_, hasScore := idx["sentiment_score"]

	cell := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	t := &Table{Scored: hasLabel || hasScore}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ticker := cell(rec, "ticker")
		if ticker == "" {
			continue
		}
		t.Events = append(t.Events, domain.NewsEvent{
			Ticker:         strings.ToUpper(ticker),
			PublishedAt:    cell(rec, "published_at"),
			Title:          cell(rec, "title"),
			Description:    cell(rec, "description"),
			URL:            cell(rec, "url"),
			SentimentLabel: cell(rec, "sentiment_label"),
			SentimentScore: eventstudy.Normalize(cell(rec, "sentiment_score")),
		})
	}
	return t, nil
}

// WriteCSV writes events in the scored headline layout. Absent scores are
// written as empty cells.
func WriteCSV(w io.Writer, events []domain.NewsEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scoredHeader); err != nil {
		return err
	}
	for _, ev := range events {
		rec := []string{
			ev.Ticker,
			ev.Title,
			ev.Description,
			ev.PublishedAt,
			ev.URL,
			ev.SentimentLabel,
			ev.SentimentScore.Format(""),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
