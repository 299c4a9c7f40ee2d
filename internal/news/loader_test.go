package news

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgpulse/pkg/contracts/domain"
)

const scoredCSV = `ticker,title,description,publishedAt,url,sentiment_label,sentiment_score
xyz,XYZ cuts emissions,Plan to halve CO2,2024-01-15T09:30:00Z,https://example.com/a,positive,0.91
ABC,"ABC fined, again",Regulator fine,2024-02-01T12:00:00Z,https://example.com/b,negative,
,orphan row,,2024-02-02,,,
`

func TestLoadScored(t *testing.T) {
	tbl, err := Load(strings.NewReader(scoredCSV))
	require.NoError(t, err)
	assert.True(t, tbl.Scored)
	require.Len(t, tbl.Events, 2)

	first := tbl.Events[0]
	assert.Equal(t, "XYZ", first.Ticker)
	assert.Equal(t, "2024-01-15T09:30:00Z", first.PublishedAt)
	assert.Equal(t, "positive", first.SentimentLabel)
	assert.Equal(t, domain.Some(0.91), first.SentimentScore)

	second := tbl.Events[1]
	assert.Equal(t, "ABC fined, again", second.Title)
	assert.False(t, second.SentimentScore.Valid, "empty score stays absent")
}

func TestLoadRaw(t *testing.T) {
	raw := "\ufeffTicker,Title,Description,PublishedAt,URL\nXYZ,Headline,,2024-01-15T00:00:00Z,\n"

	tbl, err := Load(strings.NewReader(raw))
	require.NoError(t, err)
	assert.False(t, tbl.Scored)
	require.Len(t, tbl.Events, 1)
	assert.Equal(t, "Headline", tbl.Events[0].Title)
}

func TestLoadMissingColumns(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no ticker", "title,publishedAt\nx,2024-01-01\n"},
		{"no date", "ticker,title\nXYZ,x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrMissingColumn)
		})
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	events := []domain.NewsEvent{
		{Ticker: "XYZ", Title: "a", PublishedAt: "2024-01-15", SentimentLabel: "neutral", SentimentScore: domain.Some(0.5)},
		{Ticker: "ABC", Title: "b", PublishedAt: "2024-01-16"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, events))

	tbl, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, events[0].SentimentScore, tbl.Events[0].SentimentScore)
	assert.False(t, tbl.Events[1].SentimentScore.Valid)
}
