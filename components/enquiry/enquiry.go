// components/enquiry/enquiry.go
//
// Public submissions: contact messages and booking requests.
//
// Context
//   POST /api/contact   → contact-messages row
//   POST /api/bookings  → bookings row (status pending)
//
//   Both validate exactly like an admin create, except admin-only fields
//   (booking status, read flag) always take their defaults.  The visitor's
//   IP, User-Agent, and GeoIP country are stamped onto the row.
//
// Workflow
//   limiter → requestinfo.Enrich → decode → Bind(ModeSubmit) → Store.Create
//   → notify.Async → 201 {message, id}
//
// Notes
// -----
// • The notification runs after the response is decided and never changes
//   it; failures are logged and counted.
// • Oxford commas, two spaces after periods.
//
//------------------------------------------------------------------------------

package enquiry

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/metrics"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/notify"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/requestinfo"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// form binds one public endpoint to its entity.
type form struct {
	kind     string // metric and notification label
	path     string
	resource string
	nameKey  string
	thanks   string
	summary  func(map[string]any) string
}

var forms = []form{
	{
		kind:     "contact",
		path:     "/api/contact",
		resource: "contact-messages",
		nameKey:  "name",
		thanks:   "Thank you, your message has been sent.",
		summary: func(in map[string]any) string {
			if s := text(in, "subject"); s != "" {
				return s
			}
			return clip(text(in, "message"), 80)
		},
	},
	{
		kind:     "booking",
		path:     "/api/bookings",
		resource: "bookings",
		nameKey:  "full_name",
		thanks:   "Thank you, your booking request has been received.",
		summary: func(in map[string]any) string {
			parts := []string{}
			if d := text(in, "travel_date"); d != "" {
				parts = append(parts, "travelling "+d)
			}
			if g := text(in, "guests"); g != "" {
				parts = append(parts, g+" guests")
			}
			if len(parts) == 0 {
				return "booking request"
			}
			return strings.Join(parts, ", ")
		},
	},
}

// Component serves the public enquiry forms.
type Component struct {
	env component.Env
	// done receives each notification's completion channel; tests wait on it.
	done func(<-chan struct{})
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "enquiry" }

// Init keeps the shared services and checks the target schemas exist.
func (c *Component) Init(env component.Env) error {
	for _, f := range forms {
		if _, ok := env.Resources.Lookup(f.resource); !ok {
			return fmt.Errorf("enquiry: schema %q not loaded", f.resource)
		}
	}
	c.env = env
	return nil
}

// Migrations returns nil; both tables come from content schemas.
func (c *Component) Migrations() []string { return nil }

// Routes mounts the submission endpoints.
func (c *Component) Routes(r chi.Router) {
	r.Group(func(g chi.Router) {
		if c.env.Limits.Submit != nil {
			g.Use(c.env.Limits.Submit.Middleware)
		}
		g.Use(requestinfo.Enrich)
		for _, f := range forms {
			g.Post(f.path, c.submit(f))
		}
	})
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handler ──────────────────────────────────────*/

func (c *Component) submit(f form) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		def := c.env.Resources.MustLookup(f.resource)

		input, err := httpx.DecodeObject(w, r, c.env.MaxBody())
		if err != nil {
			httpx.ErrorFor(w, r, def, err)
			return
		}
		vals, err := c.env.Binder.Bind(def, input, resource.ModeSubmit)
		if err != nil {
			httpx.ErrorFor(w, r, def, err)
			return
		}

		info := requestinfo.FromContext(ctx)
		vals.Set("client_ip", info.IP)
		vals.Set("user_agent", clip(info.RawUA, 500))
		vals.Set("country", info.Country)

		id, err := c.env.Store.Create(ctx, def, vals)
		if err != nil {
			httpx.ErrorFor(w, r, def, err)
			return
		}

		metrics.EnquiriesTotal.WithLabelValues(f.kind).Inc()
		logger.FromContext(ctx).Infow("enquiry stored",
			"kind", f.kind, "id", id, "country", info.Country,
			"device", info.Agent.Device, "bot", info.Agent.IsBot)

		if c.env.Notifier != nil {
			email, _ := vals.Get("email")
			ev := notify.Event{
				Kind:    f.kind,
				ID:      id,
				Name:    text(input, f.nameKey),
				Email:   fmt.Sprint(email),
				Summary: f.summary(input),
				Link:    c.adminLink(f.resource, id),
				Country: info.Country,
				Agent:   info.Agent.String(),
				At:      time.Now().UTC(),
			}
			ch := notify.Async(ctx, c.env.Notifier, ev, c.env.NotifyTimeout())
			if c.done != nil {
				c.done(ch)
			}
		}

		httpx.JSON(w, http.StatusCreated, map[string]any{"message": f.thanks, "id": id})
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func (c *Component) adminLink(resourceName string, id int64) string {
	if c.env.Config == nil || c.env.Config.App.BaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/admin/%s/%d", strings.TrimRight(c.env.Config.App.BaseURL, "/"), resourceName, id)
}

// text renders input[key] for notification text.
func text(in map[string]any, key string) string {
	v, ok := in[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
