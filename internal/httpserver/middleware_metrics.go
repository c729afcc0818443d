package httpserver

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/boonlink/bridge/internal/errors"
)

// adminMetricsAuth protects the /metrics endpoint with an API key.
// If no API key is configured, the endpoint is accessible without authentication.
func adminMetricsAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			expected := "Bearer " + apiKey
			if r.Header.Get("Authorization") != expected {
				resp := apierrors.NewErrorResponse(apierrors.ErrCodeInvalidField, "invalid or missing admin API key", nil)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(resp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
