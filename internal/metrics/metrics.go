// Package metrics holds Prometheus instruments that are used across the
// API.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safari_http_requests_total",
			Help: "HTTP requests by method, route pattern, and status code.",
		}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safari_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

	// ContentDegradedTotal counts public reads answered with an empty,
	// degraded result instead of database content.
	ContentDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safari_content_degraded_total",
			Help: "Public content reads served in degraded mode, by resource and reason.",
		}, []string{"resource", "reason"})

	FallbackSectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safari_fallback_sections_total",
			Help: "Home page sections replaced by built-in fallback content.",
		}, []string{"section"})

	EnquiriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safari_enquiries_total",
			Help: "Public contact messages and booking requests accepted.",
		}, []string{"kind"})

	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safari_login_attempts_total",
			Help: "Admin login attempts by result.",
		}, []string{"result"})

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safari_rate_limited_total",
			Help: "Requests rejected by a per-IP limiter.",
		}, []string{"scope"})

	NotificationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "safari_notification_errors_total",
			Help: "Staff notifications that failed to deliver.",
		})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ContentDegradedTotal,
		FallbackSectionsTotal,
		EnquiriesTotal,
		LoginAttemptsTotal,
		RateLimitedTotal,
		NotificationErrorsTotal,
	)
}
