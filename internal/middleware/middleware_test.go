package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

var ok204 = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestSecurity_SetsHeadersBeforeWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(true)(ok204).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	Security(false)(ok204).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true)(ok204)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://safari.example.com/api/lodges?x=1", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "https://safari.example.com/api/lodges?x=1", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "http://safari.example.com/api/lodges", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://localhost:8080/api/lodges", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	ForceHTTPS(false)(ok204).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://safari.example.com/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLimiter(t *testing.T) {
	l := NewLimiter("submit", 2)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "third request inside the burst window")
	assert.True(t, l.Allow("b"), "buckets are per key")

	clock = clock.Add(30 * time.Second)
	assert.True(t, l.Allow("a"), "one token refilled after 30s at 2/min")

	clock = clock.Add(idleTTL + time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.size(), "idle visitors are swept")
}

func TestLimiter_Middleware(t *testing.T) {
	l := NewLimiter("login", 1)
	h := l.Middleware(ok204)

	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = "198.51.100.7:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests."}`, rec.Body.String())

	assert.True(t, NewLimiter("off", 0).Allow("x"))
}

func TestRequestLog_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, RequestLog)
	r.Get("/api/{entity}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lodges", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLimiter_IgnoresForwardingHeaders(t *testing.T) {
	h := NewLimiter("login", 1).Middleware(ok204)

	codes := make([]int, 0, 3)
	for _, spoof := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Real-IP", spoof)
		req.Header.Set("X-Forwarded-For", spoof)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
