package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgpulse/internal/config"
	"esgpulse/internal/marketdata"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writePrices writes a Date,Close file for every weekday in
// [2023-10-02, 2024-01-31]. The stock tracks the market with beta 1.2.
func writePrices(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var market, stock strings.Builder
	market.WriteString("Date,Close\n")
	stock.WriteString("Date,Close\n")
	m, s := 4000.0, 50.0
	i := 0
	for d := time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC); !d.After(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		rm := 0.002 * float64(i%7-3)
		m *= 1 + rm
		s *= 1 + 1.2*rm + 0.001*float64(i%3-1)
		fmt.Fprintf(&market, "%s,%.6f\n", d.Format("2006-01-02"), m)
		fmt.Fprintf(&stock, "%s,%.6f\n", d.Format("2006-01-02"), s)
		i++
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, marketdata.FileName("^GSPC")), []byte(market.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, marketdata.FileName("XYZ")), []byte(stock.String()), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Sentiment.URL = ""
	cfg.Analysis.URL = ""
	writePrices(t, filepath.Join(cfg.Paths.BaseDir, cfg.Paths.PricesDir))
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const scoredCSV = `ticker,title,publishedAt,sentiment_label,sentiment_score
XYZ,XYZ fined over emissions,2024-01-15T09:30:00Z,negative,-0.8
ABC,ABC opens solar farm,2024-01-16T10:00:00Z,positive,0.9
`

func TestRun_ScoredEvents(t *testing.T) {
	cfg := testConfig(t)
	opts := options{Events: writeFile(t, "events.csv", scoredCSV), Formats: "csv,json"}
	opts.apply(cfg)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, opts, &out, quietLogger()))

	text := out.String()
	assert.Contains(t, text, "2 events, 1 processed, 1 skipped")
	assert.Contains(t, text, "data_unavailable")
	assert.NotContains(t, text, "warning:")

	files, err := filepath.Glob(filepath.Join(cfg.Paths.BaseDir, cfg.Paths.OutputDir, "*"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRun_NoRowsIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	only := "ticker,title,publishedAt,sentiment_label,sentiment_score\nABC,ABC opens solar farm,2024-01-16,positive,0.9\n"
	opts := options{Events: writeFile(t, "events.csv", only)}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, opts, &out, quietLogger()))
	assert.Contains(t, out.String(), "0 rows")
	assert.Contains(t, out.String(), "warning: no price data")
}

func TestRun_ScoresRawNewsAndAnalyses(t *testing.T) {
	sentiment := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sentiment-score", r.URL.Path)
		var req struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := make([]map[string]any, len(req.Texts))
		for i := range req.Texts {
			out[i] = map[string]any{"label": "negative", "score": -0.6}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer sentiment.Close()

	var observations int
	analysis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/run-analysis", r.URL.Path)
		var req struct {
			AbnormalReturns []*float64 `json:"abnormal_returns"`
			SentimentScores []*float64 `json:"sentiment_scores"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		observations = len(req.AbnormalReturns)
		for _, s := range req.SentimentScores {
			require.NotNil(t, s)
			assert.InDelta(t, -0.6, *s, 1e-9)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"model_summary": "OLS Regression Results"})
	}))
	defer analysis.Close()

	cfg := testConfig(t)
	cfg.Sentiment.URL = sentiment.URL
	cfg.Analysis.URL = analysis.URL
	raw := "ticker,title,publishedAt\nxyz,XYZ fined over emissions,2024-01-15T09:30:00Z\n"
	opts := options{News: writeFile(t, "news.csv", raw), Analysis: true}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, opts, &out, quietLogger()))
	assert.Contains(t, out.String(), "OLS Regression Results")
	assert.Positive(t, observations)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts func(t *testing.T) options
		want string
	}{
		{
			name: "no input",
			opts: func(t *testing.T) options { return options{} },
			want: "exactly one of",
		},
		{
			name: "both inputs",
			opts: func(t *testing.T) options { return options{Events: "a.csv", News: "b.csv"} },
			want: "exactly one of",
		},
		{
			name: "missing file",
			opts: func(t *testing.T) options {
				return options{Events: filepath.Join(t.TempDir(), "missing.csv")}
			},
			want: "open news file",
		},
		{
			name: "unscored without sentiment service",
			opts: func(t *testing.T) options {
				return options{Events: writeFile(t, "raw.csv", "ticker,title,publishedAt\nXYZ,t,2024-01-15\n")}
			},
			want: "no sentiment service",
		},
		{
			name: "unknown format",
			opts: func(t *testing.T) options {
				return options{Events: writeFile(t, "e.csv", scoredCSV), Formats: "pdf"}
			},
			want: "build pipeline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			opts := tt.opts(t)
			opts.apply(cfg)
			err := run(context.Background(), cfg, opts, io.Discard, quietLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOptions_Apply(t *testing.T) {
	cfg := config.Default()
	options{OutDir: "/tmp/out", Formats: "csv,xlsx", Upload: true, Verbose: true}.apply(cfg)

	assert.Equal(t, "/tmp/out", cfg.Paths.OutputDir)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Output.Formats)
	assert.True(t, cfg.Output.S3.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
