package middleware

import (
	"net/http"
	"slices"
)

// CorsConfig holds the origins allowed to call the HTTP API.
type CorsConfig struct {
	AllowedOrigins []string
}

// NewCORS returns a middleware enforcing the configured origin list.
// An empty list disables CORS handling entirely; "*" allows any origin.
func NewCORS(cfg CorsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && len(cfg.AllowedOrigins) > 0 {
				if slices.Contains(cfg.AllowedOrigins, "*") || slices.Contains(cfg.AllowedOrigins, origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
