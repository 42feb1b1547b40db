// internal/server/router.go
//
// Root router.
//
/*
Context
--------
Router assembles the chi tree every request goes through:

  1. RequestID, RealIP        – chi middleware; RealIP rewrites RemoteAddr
                                from X-Forwarded-For or X-Real-IP, and is
                                mounted only with http.trust_proxy.  Rate
                                limits and enquiry client_ip key on
                                RemoteAddr, so a directly exposed server
                                must not believe those headers.
  2. RequestLog               – access log and Prometheus counters.
  3. Recoverer                – a panic becomes a 500, not a dead process.
  4. ForceHTTPS, Security     – redirect and response headers.
  5. /metrics                 – Prometheus exposition.
  6. Components               – each registered component mounts its routes.

Unmatched paths and methods answer with the JSON 404/405 envelopes rather
than chi's plain-text defaults.

Notes
-----
  • Components are initialised by the caller (cmd/web) so a failing Init
    aborts boot before any route is mounted.
  • Oxford commas, two spaces after periods.
*/
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/config"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/middleware"
)

// Router builds the handler for comps.
func Router(cfg *config.Config, comps []component.Component) http.Handler {
	forceHTTPS := cfg != nil && cfg.HTTP.ForceHTTPS

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg != nil && cfg.HTTP.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(forceHTTPS))
	r.Use(middleware.Security(forceHTTPS))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Message(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Handle("/metrics", promhttp.Handler())

	for _, c := range comps {
		c.Routes(r)
	}
	return r
}
