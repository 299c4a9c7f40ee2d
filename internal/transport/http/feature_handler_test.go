package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"esgpulse/internal/services"
)

func newFeatureRouter(svc FeatureRunner) chi.Router {
	v, eh := testDeps()
	r := chi.NewRouter()
	r.Mount("/api/v1/features", NewFeatureHandler(svc, v, eh, "", quietLogger()).Routes())
	return r
}

func eventsBody(n int, ticker string) string {
	events := make([]string, n)
	for i := range events {
		events[i] = fmt.Sprintf(`{"ticker":%q,"published_at":"2024-01-15T09:30:00Z","title":"fined","sentiment_label":"negative","sentiment_score":-0.8}`, ticker)
	}
	return `{"events":[` + strings.Join(events, ",") + `]}`
}

func TestFeatureHandler_Run(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		setupMock      func(*MockFeatureRunner)
		expectedStatus int
		check          func(t *testing.T, body map[string]interface{})
	}{
		{
			name:        "successful run",
			body:        eventsBody(1, "XYZ"),
			contentType: "application/json",
			setupMock: func(m *MockFeatureRunner) {
				m.On("Run", mock.Anything, mock.Anything).
					Return(sampleReport(), nil).Once()
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "0f8e7d6c-aaaa-bbbb-cccc-000000000001", body["run_id"])
				rows := body["rows"].([]interface{})
				require.Len(t, rows, 1)
				row := rows[0].(map[string]interface{})
				assert.Equal(t, 0.005, row["abnormal_return"])
				assert.Nil(t, row["momentum"])
			},
		},
		{
			name:           "empty events",
			body:           `{"events":[]}`,
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
			},
		},
		{
			name:           "invalid ticker",
			body:           eventsBody(1, "not a ticker"),
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				details := body["details"].(map[string]interface{})
				errs := details["errors"].([]interface{})
				require.NotEmpty(t, errs)
				assert.Equal(t, "events[0].ticker", errs[0].(map[string]interface{})["field"])
			},
		},
		{
			name:           "too many events",
			body:           eventsBody(MaxEventsPerRequest+1, "XYZ"),
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unsupported content type",
			body:           eventsBody(1, "XYZ"),
			contentType:    "text/plain",
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:        "run in progress",
			body:        eventsBody(1, "XYZ"),
			contentType: "application/json",
			setupMock: func(m *MockFeatureRunner) {
				m.On("Run", mock.Anything, mock.Anything).Return(nil, services.ErrRunInProgress).Once()
			},
			expectedStatus: http.StatusConflict,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "RUN_IN_PROGRESS", body["error_code"])
			},
		},
		{
			name:        "service limit",
			body:        eventsBody(2, "XYZ"),
			contentType: "application/json",
			setupMock: func(m *MockFeatureRunner) {
				m.On("Run", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: 2 events, limit 1", services.ErrTooManyEvents)).Once()
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "export failure",
			body:        eventsBody(1, "XYZ"),
			contentType: "application/json",
			setupMock: func(m *MockFeatureRunner) {
				m.On("Run", mock.Anything, mock.Anything).Return(sampleReport(), errors.New("disk full")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.NotContains(t, body["detail"], "disk full")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockFeatureRunner)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/features", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			newFeatureRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decodeBody(t, rec))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestFeatureHandler_Latest(t *testing.T) {
	t.Run("no run yet", func(t *testing.T) {
		svc := new(MockFeatureRunner)
		svc.On("Latest").Return(nil, services.ErrNoResult).Once()

		rec := httptest.NewRecorder()
		newFeatureRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/features/latest", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NO_RESULT", decodeBody(t, rec)["error_code"])
	})

	t.Run("json", func(t *testing.T) {
		svc := new(MockFeatureRunner)
		svc.On("Latest").Return(sampleReport(), nil).Once()

		rec := httptest.NewRecorder()
		newFeatureRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/features/latest", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "0f8e7d6c-aaaa-bbbb-cccc-000000000001", body["run_id"])
	})

	t.Run("csv", func(t *testing.T) {
		svc := new(MockFeatureRunner)
		svc.On("Latest").Return(sampleReport(), nil).Once()

		rec := httptest.NewRecorder()
		newFeatureRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/features/latest?format=CSV", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "features_20240301T120000Z_0f8e7d6c.csv")

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "ticker,event_date,window_day,actual_return,expected_return,abnormal_return,momentum,vix,sentiment_label,sentiment_score,title", lines[0])
		assert.Equal(t, "XYZ,2024-01-15,1,0.015,0.01,0.005,NA,14.2,negative,-0.8,XYZ fined over emissions", lines[1])
	})

	t.Run("xlsx", func(t *testing.T) {
		svc := new(MockFeatureRunner)
		svc.On("Latest").Return(sampleReport(), nil).Once()

		rec := httptest.NewRecorder()
		newFeatureRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/features/latest?format=xlsx", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		// XLSX files are zip archives.
		assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
	})

	t.Run("unknown format", func(t *testing.T) {
		svc := new(MockFeatureRunner)

		rec := httptest.NewRecorder()
		newFeatureRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/features/latest?format=pdf", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Latest")
	})
}
