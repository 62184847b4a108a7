package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KAsare1/Dentora-server/cmd/logging"
)

const testSecret = "test-session-secret"

func signSession(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := ExternalIDFromContext(r.Context())
		fmt.Fprint(w, id)
	})
}

func TestSessionVerifier(t *testing.T) {
	v, err := NewSessionVerifier("", testSecret)
	require.NoError(t, err)

	sub, err := v.Verify(signSession(t, "user_123", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user_123", sub)

	_, err = v.Verify(signSession(t, "user_123", time.Now().Add(-time.Hour)))
	assert.Error(t, err, "expired token must be rejected")

	_, err = v.Verify("not-a-jwt")
	assert.Error(t, err)

	_, err = NewSessionVerifier("", "")
	assert.Error(t, err)

	_, err = NewSessionVerifier("garbage", "")
	assert.Error(t, err)
}

func TestSessionMiddleware(t *testing.T) {
	v, err := NewSessionVerifier("", testSecret)
	require.NoError(t, err)
	h := SessionMiddleware(v)(echoSubject())

	tests := []struct {
		name string
		prep func(r *http.Request)
		want string
	}{
		{"bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signSession(t, "user_b", time.Now().Add(time.Hour)))
		}, "user_b"},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: signSession(t, "user_c", time.Now().Add(time.Hour))})
		}, "user_c"},
		{"invalid token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
		}, ""},
		{"none", func(r *http.Request) {}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/appointments/me", nil)
			tt.prep(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAccessGate(t *testing.T) {
	h := AccessGate("/admin", "https://accounts.example/sign-in")(echoSubject())

	t.Run("unauthenticated admin redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://dentora.test/admin/api/doctors?x=1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "accounts.example", loc.Host)
		assert.Equal(t, "http://dentora.test/admin/api/doctors?x=1", loc.Query().Get("redirect_url"))
	})

	t.Run("prefix match covers admin prefixed paths", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/administrator", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("authenticated admin allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(WithExternalID(req.Context(), "user_1"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user_1", rec.Body.String())
	})

	t.Run("other paths allowed", func(t *testing.T) {
		for _, p := range []string{"/", "/api/doctors/active", "/admin/logo.png", "/_next/static/chunk"} {
			req := httptest.NewRequest(http.MethodGet, p, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, p)
		}
	})
}

func TestIsStaticAsset(t *testing.T) {
	assert.True(t, IsStaticAsset("/favicon.ico"))
	assert.True(t, IsStaticAsset("/img/Tooth.JPG"))
	assert.True(t, IsStaticAsset("/_next/data"))
	assert.False(t, IsStaticAsset("/api/data.json"))
	assert.False(t, IsStaticAsset("/admin"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.0001, 2)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/appointments", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// a different client has its own bucket
	assert.True(t, rl.Allow("10.0.0.2"))

	rl.evict(0)
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestRateLimiter_IgnoresForwardedFor(t *testing.T) {
	rl := NewRateLimiter(0.0001, 2)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/appointments", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.1.1.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{
		http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests,
		http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:443"
	assert.Equal(t, "203.0.113.9", clientIP(req))

	// ProxyHeaders leaves a bare address without a port.
	req.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", clientIP(req))
}

func TestRateLimiter_SweepStopsWithContext(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Sweep(ctx, time.Millisecond, time.Minute)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestWriteError(t *testing.T) {
	log := logging.Discard()
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{NewError(ErrValidation, "Name and email are required"), http.StatusBadRequest, "Name and email are required"},
		{NewError(ErrNotFound, "Doctor not found"), http.StatusNotFound, "Doctor not found"},
		{fmt.Errorf("wrapped: %w", NewError(ErrConflict, "taken")), http.StatusConflict, "taken"},
		{NewError(ErrUnauthenticated, "login"), http.StatusUnauthorized, "login"},
		{NewError(ErrForbidden, "nope"), http.StatusForbidden, "nope"},
		{errors.New("db exploded"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		WriteError(rec, req, log, tt.err)
		assert.Equal(t, tt.code, rec.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.msg), rec.Body.String())
	}
}
