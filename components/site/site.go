// components/site/site.go
//
// Home-page aggregate.
//
// Context
//   GET /api/site/home returns every public section in one round trip:
//
//     {"sections": {"hero-slides": {"items": [...], "fallback": false}, ...},
//      "degraded": false}
//
//   Sections load concurrently through the degraded-mode PublicReader.  A
//   section that comes back empty or degraded is replaced with the static
//   content from internal/fallback and flagged, so the marketing site
//   always has something to render.
//
// Notes
// -----
// • `degraded` is true when any section read failed, even if fallback
//   content masked it.
// • Oxford commas, two spaces after periods.

package site

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/fallback"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/metrics"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Section is one block of the home page.
type Section struct {
	Items    []map[string]any `json:"items"`
	Fallback bool             `json:"fallback"`
}

// Home is the aggregate response.
type Home struct {
	Sections map[string]Section `json:"sections"`
	Degraded bool               `json:"degraded"`
}

// Component serves the site aggregate.
type Component struct {
	env component.Env
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "site" }

// Init keeps the shared services.
func (c *Component) Init(env component.Env) error {
	c.env = env
	return nil
}

// Migrations returns nil.
func (c *Component) Migrations() []string { return nil }

// Routes mounts GET /api/site/home.
func (c *Component) Routes(r chi.Router) {
	r.Get("/api/site/home", c.handleHome)
}

// Register component at program start.
func init() { component.Register(&Component{}) }

func (c *Component) handleHome(w http.ResponseWriter, r *http.Request) {
	defs := c.env.Resources.Public()
	sections := make([]Section, len(defs))
	degraded := make([]bool, len(defs))

	// Each goroutine writes only its own index.  PublicReader never
	// returns an error, so the group is used for fan-out and join.
	var g errgroup.Group
	for i, def := range defs {
		i, def := i, def
		g.Go(func() error {
			res := c.env.Public.List(r.Context(), def)
			degraded[i] = res.Degraded

			if !res.Degraded && len(res.Items) > 0 {
				items := make([]map[string]any, len(res.Items))
				for j, rec := range res.Items {
					items[j] = rec
				}
				sections[i] = Section{Items: items}
				return nil
			}
			metrics.FallbackSectionsTotal.WithLabelValues(def.Name).Inc()
			sections[i] = Section{Items: fallback.For(def.Name), Fallback: true}
			return nil
		})
	}
	_ = g.Wait()

	home := Home{Sections: make(map[string]Section, len(defs))}
	for i, def := range defs {
		home.Sections[def.Name] = sections[i]
		home.Degraded = home.Degraded || degraded[i]
	}
	httpx.JSON(w, http.StatusOK, home)
}
