package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// QueryParam is the fallback query parameter carrying the API key.
const QueryParam = "api_key"

// APIKey returns HTTP middleware that enforces API key authentication.
//
// Requests whose path is listed in exempt (exact match) are never checked;
// the server uses this for /healthz. In apikey mode an empty key rejects
// every other request.
func APIKey(mode, header, key string, exempt ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		open[p] = true
	}

	return func(next http.Handler) http.Handler {
		if mode != "apikey" {
			return next
		}
		if key == "" {
			slog.Error("auth: apikey mode but the key is empty; rejecting all requests")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			got := strings.TrimSpace(r.Header.Get(header))
			if got == "" {
				got = r.URL.Query().Get(QueryParam)
			}
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				slog.Debug("auth: rejected request", "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid api key"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
