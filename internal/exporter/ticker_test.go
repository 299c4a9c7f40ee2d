package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgpulse/pkg/contracts/domain"
)

func tickerRows() []domain.FeatureRow {
	d1 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return []domain.FeatureRow{
		{Ticker: "XYZ", EventDate: d2, WindowDay: 0, AbnormalReturn: domain.Some(0.02), SentimentScore: domain.Some(-0.8), Title: "b"},
		{Ticker: "XYZ", EventDate: d2, WindowDay: 1, AbnormalReturn: domain.None(), SentimentScore: domain.Some(-0.8), Title: "b"},
		{Ticker: "XYZ", EventDate: d1, WindowDay: -1, AbnormalReturn: domain.Some(-0.01), SentimentScore: domain.Some(0.4), Title: "a"},
		{Ticker: "ABC", EventDate: d1, WindowDay: 0, AbnormalReturn: domain.None(), SentimentScore: domain.None(), Title: "c"},
	}
}

func TestSummarizeTickers(t *testing.T) {
	summaries := SummarizeTickers(tickerRows())
	require.Len(t, summaries, 2)

	abc := summaries[0]
	assert.Equal(t, "ABC", abc.Ticker)
	assert.Equal(t, 1, abc.Events)
	assert.False(t, abc.CAR.Valid)
	assert.False(t, abc.MeanSentiment.Valid)

	xyz := summaries[1]
	assert.Equal(t, "XYZ", xyz.Ticker)
	assert.Equal(t, 2, xyz.Events)
	assert.Equal(t, 3, xyz.Rows)
	assert.InDelta(t, 0.01, xyz.CAR.Value, 1e-12)
	assert.InDelta(t, 0.005, xyz.MeanAbnormal.Value, 1e-12)
	assert.InDelta(t, -0.2, xyz.MeanSentiment.Value, 1e-12)
	assert.Equal(t, "2024-01-10", xyz.FirstEventDate)
	assert.Equal(t, "2024-01-15", xyz.LastEventDate)
}

func TestTickerExporter(t *testing.T) {
	dir := t.TempDir()
	te := NewTickerExporter(dir, "", nil)

	paths, err := te.ExportTickerFiles(tickerRows())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "ABC_features.csv"),
		filepath.Join(dir, "XYZ_features.csv"),
	}, paths)

	xyz := readCSV(t, paths[1])
	require.Len(t, xyz, 4)
	assert.Equal(t, "2024-01-10", xyz[1][1], "rows are in calendar order")
	assert.Equal(t, "NA", xyz[3][5])

	path, err := te.ExportTickerSummary(SummarizeTickers(tickerRows()), "summary.csv")
	require.NoError(t, err)
	summary := readCSV(t, path)
	require.Len(t, summary, 3)
	assert.Equal(t, summaryHeaders, summary[0])
	assert.Equal(t, []string{"ABC", "1", "1", "NA", "NA", "NA", "2024-01-10", "2024-01-10"}, summary[1])
}
