// internal/middleware/ratelimit.go
//
// Per-IP token buckets for the public write endpoints and login.
//
// Context
//   One Limiter per scope ("login", "submit").  Each client IP gets a
//   golang.org/x/time/rate bucket refilled at perMinute/60 tokens per
//   second with a burst of perMinute.  Buckets idle for longer than
//   idleTTL are dropped during the next sweep, which runs inline on the
//   request path at most once per idleTTL.  No background goroutine.
//
// Notes
// -----
// • The key is r.RemoteAddr with the port stripped.  Forwarding headers
//   are never read here; chi's RealIP rewrites RemoteAddr first only when
//   http.trust_proxy is set.
// • perMinute <= 0 disables the limiter.

package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/metrics"
)

const idleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter throttles requests per client IP.
type Limiter struct {
	scope     string
	limit     rate.Limit
	burst     int
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiter allows perMinute requests per IP, bursting up to perMinute.
func NewLimiter(scope string, perMinute int) *Limiter {
	l := &Limiter{
		scope:    scope,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
	if perMinute > 0 {
		l.limit = rate.Limit(float64(perMinute) / 60)
		l.burst = perMinute
	}
	l.lastSweep = l.now()
	return l
}

// Allow reports whether key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if l.burst == 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) > idleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Middleware answers 429 once the caller's bucket is empty.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !l.Allow(ip) {
			metrics.RateLimitedTotal.WithLabelValues(l.scope).Inc()
			logger.FromContext(r.Context()).Infow("rate limited", "scope", l.scope, "ip", ip)
			w.Header().Set("Retry-After", "60")
			httpx.Message(w, http.StatusTooManyRequests, httpx.MsgTooMany)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// size is used by tests.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
