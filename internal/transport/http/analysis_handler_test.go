package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"esgpulse/internal/analysis"
	"esgpulse/internal/services"
	"esgpulse/pkg/contracts/domain"
)

func newAnalysisRouter(svc AnalysisProvider) chi.Router {
	v, eh := testDeps()
	h := NewAnalysisHandler(svc, v, eh, quietLogger())
	r := chi.NewRouter()
	r.Mount("/api/v1/analysis", h.Routes())
	r.Post("/api/v1/alerts", h.Alerts)
	return r
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const rowsBody = `{"rows":[{"ticker":"XYZ","window_day":1,"abnormal_return":0.005,"momentum":null,"vix":14.2,"sentiment_score":-0.8}]}`

func TestAnalysisHandler_BuildRequest(t *testing.T) {
	svc := new(MockAnalysisProvider)
	ar, vix, score := 0.005, 14.2, -0.8
	svc.On("BuildRequest", mock.MatchedBy(func(rows []domain.FeatureRow) bool {
		return len(rows) == 1 && rows[0].Ticker == "XYZ" && !rows[0].Momentum.Valid && rows[0].AbnormalReturn.Valid
	})).Return(analysis.Request{
		AbnormalReturns: []*float64{&ar},
		SentimentScores: []*float64{&score},
		SectorDummies:   []*float64{nil},
		VIXValues:       []*float64{&vix},
		Momentums:       []*float64{nil},
	}).Once()

	rec := postJSON(newAnalysisRouter(svc), "/api/v1/analysis/request", rowsBody)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, []interface{}{0.005}, body["abnormal_returns"])
	assert.Equal(t, []interface{}{nil}, body["momentums"])
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_BuildRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing rows", body: `{}`},
		{name: "window day out of range", body: `{"rows":[{"ticker":"XYZ","window_day":9}]}`},
		{name: "malformed json", body: `{"rows":[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisProvider)
			rec := postJSON(newAnalysisRouter(svc), "/api/v1/analysis/request", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "BuildRequest", mock.Anything)
		})
	}
}

func TestAnalysisHandler_Run(t *testing.T) {
	tests := []struct {
		name           string
		result         string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{name: "success", result: "R-squared: 0.12", expectedStatus: http.StatusOK},
		{name: "not configured", err: services.ErrNotConfigured, expectedStatus: http.StatusServiceUnavailable, expectedCode: "NOT_CONFIGURED"},
		{name: "upstream failure", err: errors.New("status 500"), expectedStatus: http.StatusBadGateway, expectedCode: "UPSTREAM_FAILED"},
		{name: "deadline", err: context.DeadlineExceeded, expectedStatus: http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisProvider)
			svc.On("Run", mock.Anything, mock.Anything).Return(tt.result, tt.err).Once()

			rec := postJSON(newAnalysisRouter(svc), "/api/v1/analysis/run", rowsBody)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			if tt.err == nil {
				assert.Equal(t, tt.result, body["model_summary"])
				assert.Equal(t, float64(1), body["observations"])
			}
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error_code"])
			}
		})
	}
}

func TestAnalysisHandler_Alerts(t *testing.T) {
	svc := new(MockAnalysisProvider)
	svc.On("Alerts", mock.MatchedBy(func(records []analysis.AlertRecord) bool {
		return len(records) == 2 && records[0].Sector == "energy" && !records[1].SentimentScore.Valid
	})).Return([]analysis.Alert{{Ticker: "XOM", Alert: analysis.AlertMessage}}).Once()

	rec := postJSON(newAnalysisRouter(svc), "/api/v1/alerts",
		`{"records":[{"ticker":"XOM","sentiment_score":-0.9,"sector":"energy"},{"ticker":"AAPL","sentiment_score":null}]}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
	alerts := body["alerts"].([]interface{})
	assert.Equal(t, "XOM", alerts[0].(map[string]interface{})["ticker"])
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_AlertsRequiresTicker(t *testing.T) {
	svc := new(MockAnalysisProvider)
	rec := postJSON(newAnalysisRouter(svc), "/api/v1/alerts", `{"records":[{"sentiment_score":-0.9}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeBody(t, rec)["error_code"])
}
