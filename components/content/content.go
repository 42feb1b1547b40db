// components/content/content.go
//
// Content component: generic CRUD for every entity schema.
//
// Context
//   One handler set serves all thirteen entities.  For each definition in
//   the registry it mounts:
//
//     GET    /api/{entity}             public list (public schemas only)
//     GET    /api/{entity}/{key}       public detail by id or slug
//     GET    /api/admin/{entity}       admin list
//     GET    /api/admin/{entity}/{id}  admin detail
//     POST   /api/admin/{entity}       create
//     PUT    /api/admin/{entity}/{id}  partial update (PATCH is an alias)
//     DELETE /api/admin/{entity}/{id}  soft delete
//
//   Paths are registered per entity rather than with an {entity} wildcard
//   so route-pattern metrics and logs name the entity.
//
// Workflow
//   •  Public routes read through resource.PublicReader and never fail:
//      a degraded list is `{"data": [], "degraded": true}`.
//   •  Admin routes sit behind auth.Service.Require, plus acl.RequireRole
//      when the schema names a role (users → admin).
//   •  Writes decode → Binder.Bind → Store → re-read, then answer with the
//      stored record.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package content

import (
	"github.com/go-chi/chi/v5"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/acl"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the entity CRUD API.
type Component struct {
	env component.Env
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "content" }

// Init keeps the shared services.
func (c *Component) Init(env component.Env) error {
	c.env = env
	return nil
}

// Migrations returns the DDL of every entity table.
func (c *Component) Migrations() []string {
	if c.env.Resources == nil {
		return nil
	}
	return c.env.Resources.Migrations()
}

// Routes mounts the public and admin endpoints.
func (c *Component) Routes(r chi.Router) {
	for _, def := range c.env.Resources.Public() {
		h := &handlers{env: c.env, def: def}
		r.Get("/api/"+def.Name, h.publicList)
		r.Get("/api/"+def.Name+"/{key}", h.publicGet)
	}

	r.Group(func(admin chi.Router) {
		admin.Use(c.env.Auth.Require)
		for _, def := range c.env.Resources.All() {
			h := &handlers{env: c.env, def: def}
			base := "/api/admin/" + def.Name
			admin.Group(func(g chi.Router) {
				if def.Role != "" {
					g.Use(acl.RequireRole(def.Role))
				}
				g.Get(base, h.adminList)
				g.Post(base, h.create)
				g.Get(base+"/{id}", h.adminGet)
				g.Put(base+"/{id}", h.update)
				g.Patch(base+"/{id}", h.update)
				g.Delete(base+"/{id}", h.remove)
			})
		}
	})
}

// Register component at program start.
func init() { component.Register(&Component{}) }
