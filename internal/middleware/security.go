// internal/middleware/security.go
//
// Security-header middleware.
//
// Sets the following headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years)
//   • Content-Security-Policy   –  JSON API, so nothing may load or frame it
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; once a handler writes the
//   status line, later header changes are lost.  Handlers may still
//   overwrite any of them.
// • HSTS is only sent when the deployment forces HTTPS, so plain-HTTP
//   development hosts are not pinned.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

// Security returns a wrapper that sets security headers.
func Security(hsts bool) func(http.Handler) http.Handler {
	const (
		hstsVal = "max-age=63072000; includeSubDomains"
		csp     = "default-src 'none'; frame-ancestors 'none'"
		xfo     = "DENY"
		nosn    = "nosniff"
		refer   = "strict-origin-when-cross-origin"
		perm    = "geolocation=(), microphone=(), camera=()"
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if hsts {
				h.Set("Strict-Transport-Security", hstsVal)
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Frame-Options", xfo)
			h.Set("X-Content-Type-Options", nosn)
			h.Set("Referrer-Policy", refer)
			h.Set("Permissions-Policy", perm)

			next.ServeHTTP(w, r)
		})
	}
}
