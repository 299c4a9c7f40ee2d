package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKeyAuth(t *testing.T) {
	keys := map[string]string{"secret-1": "notebook"}

	tests := []struct {
		name       string
		keys       map[string]string
		headers    map[string]string
		wantStatus int
		wantClient string
	}{
		{name: "header key", keys: keys, headers: map[string]string{APIKeyHeader: "secret-1"}, wantStatus: http.StatusOK, wantClient: "notebook"},
		{name: "bearer key", keys: keys, headers: map[string]string{"Authorization": "Bearer secret-1"}, wantStatus: http.StatusOK, wantClient: "notebook"},
		{name: "missing key", keys: keys, wantStatus: http.StatusUnauthorized},
		{name: "wrong key", keys: keys, headers: map[string]string{APIKeyHeader: "nope"}, wantStatus: http.StatusUnauthorized},
		{name: "auth disabled", keys: nil, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var client string
			h := APIKeyAuth(discardLogger(), tt.keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				client = APIClient(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/features/latest", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantClient, client)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
