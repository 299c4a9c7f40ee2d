package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"esgpulse/internal/eventstudy"
	"esgpulse/pkg/contracts/domain"
)

// DefaultBatchSize is the number of headlines sent per scoring request.
const DefaultBatchSize = 32

// Sentiment is one classified headline.
type Sentiment struct {
	Label string       `json:"label"`
	Score domain.Float `json:"score"`
}

// Scorer classifies headlines.
type Scorer interface {
	Score(ctx context.Context, texts []string) ([]Sentiment, error)
}

// HTTPScorer calls a remote sentiment service: POST {base}/sentiment-score
// with {"texts": [...]}, answered by [{"label", "score"}, ...].
type HTTPScorer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPScorer creates a scorer for the service at baseURL.
func NewHTTPScorer(baseURL string, timeout time.Duration) *HTTPScorer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPScorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	Texts []string `json:"texts"`
}

type scoreResult struct {
	Label string `json:"label"`
	Score any    `json:"score"`
}

// Score implements Scorer.
func (s *HTTPScorer) Score(ctx context.Context, texts []string) ([]Sentiment, error) {
	body, err := json.Marshal(scoreRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("encode scoring request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sentiment-score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentiment service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sentiment service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var results []scoreResult
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&results); err != nil {
		return nil, fmt.Errorf("decode scoring response: %w", err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("sentiment service scored %d of %d texts", len(results), len(texts))
	}

	out := make([]Sentiment, len(results))
	for i, r := range results {
		out[i] = Sentiment{Label: r.Label, Score: eventstudy.Normalize(r.Score)}
	}
	return out, nil
}

// ScoreEvents returns a copy of events with the sentiment of each title
// attached. Headlines are sent in batches of batchSize.
func ScoreEvents(ctx context.Context, scorer Scorer, events []domain.NewsEvent, batchSize int, logger *slog.Logger) ([]domain.NewsEvent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	out := make([]domain.NewsEvent, len(events))
	copy(out, events)

	for start := 0; start < len(out); start += batchSize {
		end := min(start+batchSize, len(out))
		texts := make([]string, 0, end-start)
		for _, ev := range out[start:end] {
			texts = append(texts, ev.Title)
		}

		scores, err := scorer.Score(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("score headlines %d-%d: %w", start, end-1, err)
		}
		for i, s := range scores {
			out[start+i].SentimentLabel = s.Label
			out[start+i].SentimentScore = s.Score
		}
		logger.DebugContext(ctx, "headlines scored",
			slog.Int("from", start),
			slog.Int("to", end-1),
		)
	}
	return out, nil
}
