package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgpulse/pkg/contracts/domain"
)

func sampleRows() []domain.FeatureRow {
	return []domain.FeatureRow{
		{
			Ticker:         "XOM",
			WindowDay:      0,
			AbnormalReturn: domain.Some(-0.01),
			Momentum:       domain.Some(0.02),
			VIX:            domain.Some(14.5),
			SentimentScore: domain.Some(-0.8),
		},
		{
			Ticker:         "MSFT",
			WindowDay:      1,
			AbnormalReturn: domain.Some(0.004),
			SentimentScore: domain.Some(0.6),
		},
		{
			Ticker:         "ZZZ",
			WindowDay:      2,
			SentimentScore: domain.None(),
		},
	}
}

func ptr(v float64) *float64 { return &v }

func TestBuildRequest(t *testing.T) {
	sectors := Sectors{"XOM": "Energy", "MSFT": "technology"}

	req := BuildRequest(sampleRows(), sectors, []string{"energy", "consumer goods"})

	assert.Equal(t, 3, req.Len())
	for _, arr := range [][]*float64{req.SentimentScores, req.SectorDummies, req.VIXValues, req.Momentums} {
		assert.Len(t, arr, req.Len())
	}
	assert.Equal(t, []*float64{ptr(-0.01), ptr(0.004), nil}, req.AbnormalReturns)
	assert.Equal(t, []*float64{ptr(1), ptr(0), nil}, req.SectorDummies)
	assert.Equal(t, []*float64{ptr(14.5), nil, nil}, req.VIXValues)
	assert.Equal(t, []*float64{ptr(0.02), nil, nil}, req.Momentums)
}

func TestBuildRequestJSONKeepsNulls(t *testing.T) {
	req := BuildRequest(sampleRows()[1:2], nil, nil)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"abnormal_returns": [0.004],
		"sentiment_scores": [0.6],
		"sector_dummies": [null],
		"vix_values": [null],
		"momentums": [null]
	}`, string(data))
}

func TestAlertRules(t *testing.T) {
	records := []AlertRecord{
		{Ticker: "XOM", SentimentScore: domain.Some(-0.8), Sector: "energy"},
		{Ticker: "PG", SentimentScore: domain.Some(-0.51), Sector: "Consumer Goods"},
		{Ticker: "CVX", SentimentScore: domain.Some(-0.5), Sector: "energy"},
		{Ticker: "MSFT", SentimentScore: domain.Some(-0.9), Sector: "technology"},
		{Ticker: "BP", SentimentScore: domain.None(), Sector: "energy"},
	}

	alerts := DefaultAlertRules().Evaluate(records)

	require.Len(t, alerts, 2)
	assert.Equal(t, "XOM", alerts[0].Ticker)
	assert.Equal(t, "PG", alerts[1].Ticker)
	assert.Equal(t, AlertMessage, alerts[0].Alert)
}

func TestAlertRulesEmpty(t *testing.T) {
	alerts := DefaultAlertRules().Evaluate(nil)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestClientRunAnalysis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/run-analysis", r.URL.Path)
		var body map[string][]*float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["abnormal_returns"], 3)
		assert.Len(t, body["momentums"], 3)
		_, _ = w.Write([]byte(`{"model_summary":"OLS Regression Results"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	summary, err := c.RunAnalysis(context.Background(), BuildRequest(sampleRows(), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "OLS Regression Results", summary)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "singular matrix", http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)

	_, err := c.RunAnalysis(context.Background(), Request{})
	assert.Error(t, err, "empty request is rejected locally")

	_, err = c.RunAnalysis(context.Background(), BuildRequest(sampleRows(), nil, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "singular matrix")
}

func TestClientGenerateAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate-alerts", r.URL.Path)
		_, _ = w.Write([]byte(`[{"ticker":"XOM","alert":"watch"}]`))
	}))
	defer srv.Close()

	alerts, err := NewClient(srv.URL, time.Second).GenerateAlerts(context.Background(), []AlertRecord{{Ticker: "XOM"}})
	require.NoError(t, err)
	assert.Equal(t, []Alert{{Ticker: "XOM", Alert: "watch"}}, alerts)
}
