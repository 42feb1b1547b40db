// components/health/health.go
//
// Liveness and database probe.
//
//   GET /api/health → 200 {"status": "ok", "database": "up" | "disabled"}
//                   → 503 {"status": "degraded", "database": "down"}
//
// A deploy without a DSN is healthy by design; it serves fallback content.

package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
)

const pingTimeout = 2 * time.Second

var _ component.Component = (*Component)(nil)

// Component serves /api/health.
type Component struct {
	env component.Env
}

func (c *Component) Name() string { return "health" }

func (c *Component) Init(env component.Env) error {
	c.env = env
	return nil
}

func (c *Component) Migrations() []string { return nil }

func (c *Component) Routes(r chi.Router) {
	r.Get("/api/health", c.handleHealth)
}

func init() { component.Register(&Component{}) }

func (c *Component) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !c.env.Store.Enabled() {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := c.env.Store.Ping(ctx); err != nil {
		logger.FromContext(r.Context()).Warnw("health: database ping failed", "err", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "down"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}
