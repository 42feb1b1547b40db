// internal/requestinfo/middleware.go
//
// HTTP middleware that attaches *Info to each request.
//
/*
Context
--------
Mounted only on the public enquiry routes (contact, booking).  Reading
pages never needs visitor metadata, so the UA parse and Geo lookup are
skipped there.  For every enquiry request it:

  1. Extracts the client IP from RemoteAddr (rewritten from
     X-Forwarded-For or X-Real-IP only when http.trust_proxy is set).
  2. Performs the optional GeoLite2 lookup.
  3. Summarises the User-Agent and Accept-Language headers.
  4. Stores the result under an unexported key.

Notes
-----
  • Look-ups are read-only, so the middleware is safe under concurrency.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net"
	"net/http"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/ua"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps next, attaches *Info, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		info := &Info{
			Agent: ua.Parse(r.UserAgent()),
			RawUA: r.UserAgent(),
			Lang:  primaryLang(r.Header.Get("Accept-Language")),
		}
		if ip != nil {
			info.IP = ip.String()
			info.Country, info.City = lookupGeo(ip)
		}

		logger.FromContext(r.Context()).Debugw("request info",
			"ip", info.IP,
			"country", info.Country,
			"device", info.Agent.Device,
			"bot", info.Agent.IsBot,
		)
		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// ClientIP parses r.RemoteAddr, with or without a port.
func ClientIP(r *http.Request) net.IP {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}
