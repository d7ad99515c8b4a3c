package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/jivoecom/po-import/internal/config"
)

// APIKeyAuth guards the import API with the X-API-Key header. With
// RequireAPIKey off every request passes; with it on but no keys
// configured, every request is rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			switch {
			case key == "":
				denyAuth(w, r, http.StatusUnauthorized,
					`{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, "missing API key")
			case !keyMatches(key, cfg.APIKeys):
				denyAuth(w, r, http.StatusForbidden,
					`{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, "invalid API key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func denyAuth(w http.ResponseWriter, r *http.Request, status int, body, reason string) {
	slog.Warn("auth: "+reason,
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
	)
	http.Error(w, body, status)
}

// keyMatches compares against every configured key in constant time so
// response timing reveals nothing about which key matched, or none.
func keyMatches(key string, valid []string) bool {
	match := 0
	for _, k := range valid {
		match |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return match == 1
}
