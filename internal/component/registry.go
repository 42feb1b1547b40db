// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web blank-imports the
// components it ships, calls Init(env) on each in name order, runs their
// Migrations() when a database is configured, and mounts Routes() on the
// root router.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Init runs before Migrations and Routes so components can keep what they
// need from Env.  Migrations() may return nil if the component owns no
// tables.  Routes() mounts its endpoints on the shared router, e.g.:
//
//	func (c *Component) Routes(r chi.Router) {
//		r.Get("/api/health", c.health)
//	}
type Component interface {
	Name() string
	Init(Env) error
	Migrations() []string
	Routes(r chi.Router)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  A second
// registration under the same name replaces the first.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so start-up
// order and migration order are deterministic.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Lookup returns the component registered under name.
func Lookup(name string) (Component, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[name]
	return c, ok
}
