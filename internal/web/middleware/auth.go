package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/uniimport/internal/config"
)

// APIKeyAuth checks the X-API-Key header when cfg.RequireAPIKey is set.
// A missing key is 401, an unknown key 403.
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
				slog.Warn("auth: missing API key", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				denyRequest(w, http.StatusUnauthorized, "missing API key", "AUTH001")
			case !isValidAPIKey(key, cfg.APIKeys):
				slog.Warn("auth: invalid API key", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				denyRequest(w, http.StatusForbidden, "invalid API key", "AUTH002")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// denyRequest writes the same body shape as web.ErrorResponse.
func denyRequest(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   message,
		"message": message,
		"action":  "Send a configured key in the X-API-Key header",
		"code":    code,
	})
}

// isValidAPIKey compares against every configured key in constant time.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
