// Package middleware provides the HTTP middlewares shared by the API and
// websocket servers: JWT authentication and CORS.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
)

type contextKey string

const userIDContextKey contextKey = "authedUserID"

// GetUserIDFromContext returns the authenticated user ID stored by an
// auth middleware, if any.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

// NewHS256AuthMiddleware verifies a Bearer token signed with the shared
// HS256 secret the identity service uses, and stores the token's subject
// in the request context.
func NewHS256AuthMiddleware(secret string, logger zerolog.Logger) (func(http.Handler) http.Handler, error) {
	return newHS256Middleware(secret, false, logger)
}

// NewHS256WebsocketAuthMiddleware is the websocket variant: browsers
// cannot set headers on websocket dials, so it also accepts the token in
// a "token" query parameter.
func NewHS256WebsocketAuthMiddleware(secret string, logger zerolog.Logger) (func(http.Handler) http.Handler, error) {
	return newHS256Middleware(secret, true, logger)
}

func newHS256Middleware(secret string, allowQueryToken bool, logger zerolog.Logger) (func(http.Handler) http.Handler, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret cannot be empty")
	}
	key, err := jwk.FromRaw([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to build HS256 key: %w", err)
	}
	log := logger.With().Str("component", "AuthMiddleware").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r, allowQueryToken)
			if raw == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseString(raw, jwt.WithKey(jwa.HS256, key), jwt.WithValidate(true))
			if err != nil {
				log.Warn().Err(err).Msg("Rejected request with invalid token.")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userID := subjectFromToken(token)
			if userID == "" {
				log.Warn().Msg("Rejected token without a subject.")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

func tokenFromRequest(r *http.Request, allowQueryToken bool) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
			return raw
		}
		return ""
	}
	if allowQueryToken {
		return r.URL.Query().Get("token")
	}
	return ""
}

// subjectFromToken extracts the user identity. The identity service signs
// tokens with the user ID in an "id" claim; standard "sub" is the fallback.
func subjectFromToken(token jwt.Token) string {
	if v, ok := token.Get("id"); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return token.Subject()
}

// NoopAuth passes every request through, optionally injecting a fixed
// user ID. Used in tests and unauthenticated local runs.
func NoopAuth(allow bool, userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := r.Context()
			if userID != "" {
				ctx = context.WithValue(ctx, userIDContextKey, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
