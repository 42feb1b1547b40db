// internal/acl/middleware.go
//
// Chi middleware helpers that enforce roles.  They run after
// auth.Service.Require, which attaches the user loaded from the database.

package acl

import (
	"net/http"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/auth"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
)

// Role names stored in users.role.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// RequireRole ensures the current user has ANY of the supplied roles.
func RequireRole(names ...string) func(http.Handler) http.Handler {
	if len(names) == 0 {
		panic("acl.RequireRole: at least one role name must be supplied")
	}
	allowSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowSet[n] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.UserFrom(r.Context())
			if !ok {
				httpx.Message(w, http.StatusUnauthorized, httpx.MsgUnauthenticated)
				return
			}
			if _, ok := allowSet[u.Role]; !ok {
				logger.FromContext(r.Context()).Infow("role denied",
					"role", u.Role, "path", r.URL.Path)
				httpx.Message(w, http.StatusForbidden, httpx.MsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
