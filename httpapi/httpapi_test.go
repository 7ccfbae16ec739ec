package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/httpapi"
	"github.com/MrEthical07/magicAuth/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	last string
}

func (s *captureSender) SendMagicLink(_ context.Context, _, raw, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = raw
	return nil
}

func (s *captureSender) SendWelcome(context.Context, string, string) error { return nil }

func (s *captureSender) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type api struct {
	handler http.Handler
	sender  *captureSender
}

func newAPI(t *testing.T, opts ...httpapi.Option) *api {
	t.Helper()
	store := memory.New(nil)
	sender := &captureSender{}

	cfg := magicAuth.DefaultConfig()
	cfg.Session.Secret = []byte("httpapi-test-secret-0123456789abc")
	engine, err := magicAuth.New().
		WithConfig(cfg).
		WithUserStore(store).
		WithTokenStore(store.Tokens()).
		WithEmailSender(sender).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &api{handler: httpapi.NewRouter(engine, opts...), sender: sender}
}

func (a *api) do(t *testing.T, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (a *api) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/magic-link", `{"email":"`+email+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/auth/verify", `{"token":"`+a.sender.token()+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestMagicLinkAndVerify(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodPost, "/api/auth/magic-link", `{"email":" New@Example.com ","name":"new person"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Magic link sent to your email", body["message"])

	rec = a.do(t, http.MethodPost, "/api/auth/verify", `{"token":"`+a.sender.token()+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["isNewUser"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, "New Person", user["name"])
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestVerifyTokenFromQuery(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodPost, "/api/auth/send-magic-link", `{"email":"q@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/verify?token="+a.sender.token(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/verify-token?token="+a.sender.token(), "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, rec)["message"])
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		status  int
		message string
	}{
		{"invalid email", http.MethodPost, "/api/auth/magic-link", `{"email":"nope"}`, http.StatusBadRequest, "Valid email address is required"},
		{"missing token", http.MethodPost, "/api/auth/verify", `{}`, http.StatusBadRequest, "Verification token is required"},
		{"unknown token", http.MethodPost, "/api/auth/verify", `{"token":"deadbeef"}`, http.StatusBadRequest, "Invalid or expired token"},
		{"malformed body", http.MethodPost, "/api/auth/magic-link", `{`, http.StatusBadRequest, "Invalid request body"},
		{"update anonymous", http.MethodPatch, "/api/auth/me", `{"name":"Ann"}`, http.StatusUnauthorized, "Unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.target, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["requestId"])
		})
	}
}

func TestRateLimited(t *testing.T) {
	a := newAPI(t)

	for i := 0; i < 3; i++ {
		rec := a.do(t, http.MethodPost, "/api/auth/magic-link", `{"email":"rl@example.com"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := a.do(t, http.MethodPost, "/api/auth/magic-link", `{"email":"RL@example.com"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many login attempts. Please try again later.", decode(t, rec)["message"])
}

func TestMe(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":null}`, rec.Body.String())

	cookie := a.login(t, "me@example.com")
	rec = a.do(t, http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "me@example.com", user["email"])
	assert.Nil(t, user["name"])
}

func TestUpdateMe(t *testing.T) {
	a := newAPI(t)
	_ = a.login(t, "taken@example.com")
	cookie := a.login(t, "me@example.com")

	rec := a.do(t, http.MethodPatch, "/api/auth/me", `{"name":"jane doe"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Jane Doe", body["user"].(map[string]any)["name"])

	rec = a.do(t, http.MethodPatch, "/api/auth/me", `{"id":"x","createdAt":"2020-01-01T00:00:00Z"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No valid fields to update", decode(t, rec)["message"])

	rec = a.do(t, http.MethodPatch, "/api/auth/me", `{"email":"taken@example.com"}`, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email address is already in use", decode(t, rec)["message"])
}

func TestLogout(t *testing.T) {
	a := newAPI(t)
	cookie := a.login(t, "out@example.com")

	rec := a.do(t, http.MethodPost, "/api/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Logged out successfully"}`, rec.Body.String())

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.True(t, cleared[0].MaxAge < 0)
}

func TestHealthAndReadiness(t *testing.T) {
	failing := errors.New("db down")
	var fail bool
	a := newAPI(t,
		httpapi.WithReadiness(func(context.Context) error {
			if fail {
				return failing
			}
			return nil
		}),
		httpapi.WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("metrics"))
		})),
	)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/readyz", "", nil).Code)
	assert.Equal(t, "metrics", a.do(t, http.MethodGet, "/metrics", "", nil).Body.String())

	fail = true
	assert.Equal(t, http.StatusServiceUnavailable, a.do(t, http.MethodGet, "/readyz", "", nil).Code)
}
