// internal/middleware/requestlog.go
//
// Access log and HTTP metrics.
//
// Context
//   Runs right after chi's RequestID and RealIP.  It stores a sugared
//   logger carrying `request_id` in the context (logger.FromContext picks
//   it up downstream), lets the request through, and then writes one line
//   plus the Prometheus counters.
//
// Notes
// -----
// • The route label is chi's pattern ("/api/admin/{entity}/{id}"), not the
//   raw path, so metric cardinality stays bounded.  Unmatched requests are
//   labelled "unmatched".
// • 5xx lines log at Error, 4xx at Warn, everything else at Info.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/metrics"
)

// RequestLog logs and measures every request.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chimw.GetReqID(r.Context())
		l := zap.S().With("request_id", reqID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), l)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		fields := []any{
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"ip", r.RemoteAddr,
		}
		switch {
		case status >= 500:
			l.Errorw("request", fields...)
		case status >= 400:
			l.Warnw("request", fields...)
		default:
			l.Infow("request", fields...)
		}
	})
}
