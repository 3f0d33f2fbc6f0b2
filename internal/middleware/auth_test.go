package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/widefield-io/go-chat-relay/internal/middleware"
)

const testSecret = "test-secret-please-rotate"

func signToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	builder := jwt.NewBuilder()
	for k, v := range claims {
		builder = builder.Claim(k, v)
	}
	token, err := builder.Build()
	require.NoError(t, err)

	key, err := jwk.FromRaw([]byte(testSecret))
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, key))
	require.NoError(t, err)
	return string(signed)
}

func echoUserHandler(t *testing.T, gotUser *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		require.True(t, ok)
		*gotUser = userID
		w.WriteHeader(http.StatusOK)
	})
}

func TestHS256Auth_ValidBearerToken(t *testing.T) {
	authed, err := middleware.NewHS256AuthMiddleware(testSecret, zerolog.Nop())
	require.NoError(t, err)

	var gotUser string
	srv := httptest.NewServer(authed(echoUserHandler(t, &gotUser)))
	t.Cleanup(srv.Close)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, map[string]any{"id": "user-42"}))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-42", gotUser)
}

func TestHS256Auth_SubjectFallback(t *testing.T) {
	authed, err := middleware.NewHS256AuthMiddleware(testSecret, zerolog.Nop())
	require.NoError(t, err)

	var gotUser string
	srv := httptest.NewServer(authed(echoUserHandler(t, &gotUser)))
	t.Cleanup(srv.Close)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, map[string]any{"sub": "user-77"}))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-77", gotUser)
}

func TestHS256Auth_RejectsMissingAndGarbageTokens(t *testing.T) {
	authed, err := middleware.NewHS256AuthMiddleware(testSecret, zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(authed(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not run for unauthenticated requests")
	})))
	t.Cleanup(srv.Close)

	for _, header := range []string{"", "Bearer not-a-jwt", "Basic abc"} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestHS256WebsocketAuth_QueryParameter(t *testing.T) {
	authed, err := middleware.NewHS256WebsocketAuthMiddleware(testSecret, zerolog.Nop())
	require.NoError(t, err)

	var gotUser string
	srv := httptest.NewServer(authed(echoUserHandler(t, &gotUser)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "?token=" + signToken(t, map[string]any{"id": "ws-user"}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ws-user", gotUser)
}

func TestHS256Auth_EmptySecret(t *testing.T) {
	_, err := middleware.NewHS256AuthMiddleware("", zerolog.Nop())
	assert.Error(t, err)
}

func TestNoopAuth(t *testing.T) {
	var gotUser string
	srv := httptest.NewServer(middleware.NoopAuth(true, "fixed-user")(echoUserHandler(t, &gotUser)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fixed-user", gotUser)
}
