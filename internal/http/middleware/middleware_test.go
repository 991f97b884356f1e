package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/quickstay/internal/platform/session"
	"github.com/diagnosis/quickstay/pkg/auth"
	"github.com/diagnosis/quickstay/pkg/config"
)

const secret = "middleware-test-secret"

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.NewAccessToken(42, "a@example.com", role, secret, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestRequireJWT(t *testing.T) {
	var seen *auth.Claims
	h := RequireJWT(secret, "user")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Claims(r)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"bad signature", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"user", bearer(t, "user"), http.StatusOK},
		{"admin passes", bearer(t, "admin"), http.StatusOK},
		{"other role", bearer(t, "staff"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, int64(42), seen.Sub)
			}
		})
	}
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return true, s.err
	}
	return s.allowed, nil
}

// countingLimiter allows limit hits per key.
type countingLimiter struct {
	hits map[string]int
}

func (c *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	c.hits[key]++
	return c.hits[key] <= limit, nil
}

func TestRateLimiter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	serve := func(l Limiter) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "198.51.100.2:5555"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		NewRateLimiter(l, RateLimitConfig{Requests: 1, Window: time.Minute, Scope: "otp"}).Middleware()(ok).ServeHTTP(rec, req)
		return rec
	}

	l := &stubLimiter{allowed: true}
	assert.Equal(t, http.StatusNoContent, serve(l).Code)
	assert.Equal(t, []string{"otp:ip:198.51.100.2"}, l.keys)

	rec := serve(&stubLimiter{allowed: false})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// storage errors let the request through
	assert.Equal(t, http.StatusNoContent, serve(&stubLimiter{err: errors.New("db down")}).Code)
}

func TestRateLimiter_IgnoresSpoofedForwardingHeaders(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := NewRateLimiter(&countingLimiter{hits: map[string]int{}}, RateLimitConfig{
		Requests: 5, Window: time.Minute, Scope: "otp",
	}).Middleware()(ok)

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "198.51.100.2:5555"
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i))
		req.Header.Set("X-Real-IP", "192.0.2."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusNoContent {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed)
}

func TestRateLimiter_TrustProxyHeaders(t *testing.T) {
	l := &stubLimiter{allowed: true}
	h := NewRateLimiter(l, RateLimitConfig{
		Requests: 1, Window: time.Minute, Scope: "otp", TrustProxyHeaders: true,
	}).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"otp:ip:203.0.113.7"}, l.keys)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.2:5555"
	assert.Equal(t, "198.51.100.2", peerIP(req))
	assert.Equal(t, "198.51.100.2", forwardedIP(req))

	req.Header.Set("X-Real-IP", " 192.0.2.9 ")
	assert.Equal(t, "198.51.100.2", peerIP(req))
	assert.Equal(t, "192.0.2.9", forwardedIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", forwardedIP(req))
}

func TestSession_ReusesIDFromCookie(t *testing.T) {
	cfg := config.SessionConfig{Secret: "0123456789abcdef0123456789abcdef", CookieName: "qs", TTL: time.Minute}
	store := session.NewMemoryStore(cfg.TTL)
	mw := Session(NewCookieStore(cfg), cfg.CookieName, store)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromContext(r.Context())
		require.NoError(t, err)
		n, _, _ := sess.Get(r.Context(), "n")
		require.NoError(t, sess.Set(r.Context(), "n", n+"x"))
		_, _ = w.Write([]byte(n + "x"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "x", rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "xx", rec.Body.String())

	// a tampered cookie starts over
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "qs", Value: "tampered"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "x", rec.Body.String())
}
