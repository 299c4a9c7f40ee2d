package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	apierrors "esgpulse/internal/errors"
)

// APIKeyHeader carries the client API key.
const APIKeyHeader = "X-API-Key"

type apiClientKey struct{}

// APIKeyAuth authenticates requests against validKeys, a map of key to client
// name. The key is read from X-API-Key or an "Authorization: Bearer" header.
// An empty map disables authentication.
func APIKeyAuth(logger *slog.Logger, validKeys map[string]string) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "auth"))

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
					apiKey = strings.TrimSpace(token)
				}
			}

			if apiKey == "" {
				logger.WarnContext(ctx, "missing API key",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", GetRealIP(r)),
				)
				unauthorized(w, r, "API key required")
				return
			}

			clientName, valid := lookupKey(validKeys, apiKey)
			if !valid {
				logger.WarnContext(ctx, "invalid API key",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", GetRealIP(r)),
				)
				unauthorized(w, r, "Invalid API key")
				return
			}

			ctx = context.WithValue(ctx, apiClientKey{}, clientName)
			logger.DebugContext(ctx, "API key authentication successful",
				slog.String("client", clientName),
				slog.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIClient returns the authenticated client name, if any.
func APIClient(ctx context.Context) string {
	name, _ := ctx.Value(apiClientKey{}).(string)
	return name
}

func lookupKey(validKeys map[string]string, apiKey string) (string, bool) {
	for key, name := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return name, true
		}
	}
	return "", false
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="esgpulse"`)
	apierrors.ProblemFromStatus(
		http.StatusUnauthorized,
		apierrors.TypeUnauthorized,
		detail,
		GetReqID(r.Context()),
	).Write(w)
}
