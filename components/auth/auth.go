// components/auth/auth.go
//
// Authentication component: login, register, logout, and me.
//
// Context
//   POST /api/login     {email, password}        → 200 {token, expires_at, user}
//   POST /api/register  {name, email, password}  → 201 {token, expires_at, user}
//   POST /api/logout    (bearer)                 → 200 {message}
//   GET  /api/me        (bearer)                 → 200 {data: user}
//
// Notes
// -----
// • Login and register share the "login" rate-limit bucket.
// • Register is open while the users table is empty, so a fresh deploy can
//   create its first admin, or always when auth.allow_registration is set.
//   Accounts created after the first one start as editors.
// • Oxford commas, two spaces after periods.
//
//------------------------------------------------------------------------------

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authn "github.com/SeanMdegy2025/gotzwebapp-sub000/internal/auth"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/metrics"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/requestinfo"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/session"
)

// MsgLoginFailed is the single answer for unknown email and bad password.
const MsgLoginFailed = "Login failed."

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component encapsulates the admin auth endpoints.
type Component struct {
	env component.Env
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Init keeps the shared services.
func (c *Component) Init(env component.Env) error {
	c.env = env
	return nil
}

// Migrations returns the admin_sessions DDL.  The users table belongs to
// the content component's users schema.
func (c *Component) Migrations() []string { return session.Migrations() }

// Routes mounts the auth endpoints.
func (c *Component) Routes(r chi.Router) {
	r.Group(func(g chi.Router) {
		if c.env.Limits.Login != nil {
			g.Use(c.env.Limits.Login.Middleware)
		}
		g.Post("/api/login", c.handleLogin)
		g.Post("/api/register", c.handleRegister)
	})
	r.Group(func(g chi.Router) {
		g.Use(c.env.Auth.Require)
		g.Post("/api/logout", c.handleLogout)
		g.Get("/api/me", c.handleMe)
	})
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleLogin(w http.ResponseWriter, r *http.Request) {
	input, err := httpx.DecodeObject(w, r, c.env.MaxBody())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	email, password := str(input, "email"), str(input, "password")
	errs := resource.ValidationErrors{}
	if strings.TrimSpace(email) == "" {
		errs.Add("email", "The email field is required.")
	}
	if password == "" {
		errs.Add("password", "The password field is required.")
	}
	if len(errs) > 0 {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		httpx.Validation(w, errs)
		return
	}

	tok, err := c.env.Auth.Login(r.Context(), email, password, clientMeta(r))
	switch {
	case errors.Is(err, authn.ErrLoginFailed):
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		logger.FromContext(r.Context()).Infow("login failed", "email", strings.ToLower(email))
		httpx.Message(w, http.StatusUnauthorized, MsgLoginFailed)
		return
	case err != nil:
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		httpx.Error(w, r, err)
		return
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logger.FromContext(r.Context()).Infow("login", "user_id", tok.User.ID)
	httpx.JSON(w, http.StatusOK, tok)
}

func (c *Component) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !c.env.Auth.Enabled() {
		httpx.Error(w, r, resource.ErrNoDatabase)
		return
	}

	existing, err := c.env.Auth.Users.Count(ctx)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if existing > 0 && !c.allowRegistration() {
		httpx.Message(w, http.StatusForbidden, httpx.MsgForbidden)
		return
	}

	input, err := httpx.DecodeObject(w, r, c.env.MaxBody())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	def := c.env.Resources.MustLookup("users")
	body := map[string]any{
		"name":     input["name"],
		"email":    input["email"],
		"password": input["password"],
	}
	vals, err := c.env.Binder.Bind(def, body, resource.ModeCreate)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	role := "admin"
	if existing > 0 {
		role = "editor"
	}
	vals.Set("role", role)

	id, err := c.env.Store.Create(ctx, def, vals)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := c.env.Auth.Users.ByID(ctx, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if u == nil {
		httpx.Message(w, http.StatusInternalServerError, httpx.MsgServerError)
		return
	}
	tok, err := c.env.Auth.IssueSession(ctx, u, clientMeta(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	logger.FromContext(ctx).Infow("user registered", "user_id", u.ID, "role", role)
	httpx.JSON(w, http.StatusCreated, tok)
}

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := c.env.Auth.Logout(r.Context()); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Logged out.")
}

func (c *Component) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := authn.UserFrom(r.Context())
	httpx.Data(w, http.StatusOK, u)
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func (c *Component) allowRegistration() bool {
	return c.env.Config != nil && c.env.Config.Auth.AllowRegistration
}

func clientMeta(r *http.Request) authn.ClientMeta {
	m := authn.ClientMeta{UserAgent: r.UserAgent()}
	if ip := requestinfo.ClientIP(r); ip != nil {
		m.IP = ip.String()
	}
	return m
}

// str returns input[key] when it is a string.
func str(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}
