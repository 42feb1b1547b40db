// components/content/handlers.go
//
// Per-entity HTTP handlers.  One *handlers value is bound to each
// definition at mount time.

package content

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/auth"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/metrics"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

type handlers struct {
	env component.Env
	def *resource.Definition
}

// listBody is the public list envelope.
type listBody struct {
	Data     []resource.Record `json:"data"`
	Degraded bool              `json:"degraded"`
}

/*──────────────────────────── public ───────────────────────────────────────*/

func (h *handlers) publicList(w http.ResponseWriter, r *http.Request) {
	res := h.env.Public.List(r.Context(), h.def)
	httpx.JSON(w, http.StatusOK, listBody{Data: res.Items, Degraded: res.Degraded})
}

// publicGet resolves {key} as an id when it is numeric, else as a slug.
// Failures read as 404 so the page shows its not-found state.
func (h *handlers) publicGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var (
		rec resource.Record
		err error
	)
	if id, perr := strconv.ParseInt(key, 10, 64); perr == nil && id > 0 {
		rec, err = h.env.Store.Get(r.Context(), h.def, id, true)
	} else {
		rec, err = h.env.Store.GetBySlug(r.Context(), h.def, key, true)
	}
	if err != nil {
		reason := "error"
		if errors.Is(err, resource.ErrNoDatabase) {
			reason = "no_database"
		} else {
			logger.FromContext(r.Context()).Warnw("public get degraded",
				"resource", h.def.Name, "key", key, "err", err)
		}
		metrics.ContentDegradedTotal.WithLabelValues(h.def.Name, reason).Inc()
	}
	if rec == nil {
		httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
		return
	}
	httpx.Data(w, http.StatusOK, rec)
}

/*──────────────────────────── admin ────────────────────────────────────────*/

func (h *handlers) adminList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.env.Store.List(r.Context(), h.def, resource.ListOptions{})
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	httpx.Data(w, http.StatusOK, recs)
}

func (h *handlers) adminGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
		return
	}
	h.respondRecord(w, r, id, http.StatusOK)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	input, err := httpx.DecodeObject(w, r, h.env.MaxBody())
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	vals, err := h.env.Binder.Bind(h.def, input, resource.ModeCreate)
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	id, err := h.env.Store.Create(r.Context(), h.def, vals)
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	logger.FromContext(r.Context()).Infow("record created",
		"resource", h.def.Name, "id", id, "by", actor(r))
	h.respondRecord(w, r, id, http.StatusCreated)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
		return
	}
	input, err := httpx.DecodeObject(w, r, h.env.MaxBody())
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	vals, err := h.env.Binder.Bind(h.def, input, resource.ModeUpdate)
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	found, err := h.env.Store.Update(r.Context(), h.def, id, vals)
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	if !found {
		httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
		return
	}
	logger.FromContext(r.Context()).Infow("record updated",
		"resource", h.def.Name, "id", id, "by", actor(r))
	h.respondRecord(w, r, id, http.StatusOK)
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
		return
	}
	found, err := h.env.Store.Delete(r.Context(), h.def, id)
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	if !found {
		httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
		return
	}

	// A deleted account must not keep working through old tokens.
	if h.def.Name == "users" && h.env.Auth != nil && h.env.Auth.Sessions != nil {
		if n, err := h.env.Auth.Sessions.RevokeUser(r.Context(), id); err != nil {
			logger.FromContext(r.Context()).Warnw("revoke sessions failed", "user", id, "err", err)
		} else if n > 0 {
			logger.FromContext(r.Context()).Infow("sessions revoked", "user", id, "count", n)
		}
	}

	logger.FromContext(r.Context()).Infow("record deleted",
		"resource", h.def.Name, "id", id, "by", actor(r))
	httpx.Message(w, http.StatusOK, fmt.Sprintf("%s deleted.", h.def.Title))
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// respondRecord re-reads id so the response carries defaults, timestamps,
// joined labels, and children exactly as stored.
func (h *handlers) respondRecord(w http.ResponseWriter, r *http.Request, id int64, status int) {
	rec, err := h.env.Store.Get(r.Context(), h.def, id, false)
	if err != nil {
		httpx.ErrorFor(w, r, h.def, err)
		return
	}
	if rec == nil {
		httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
		return
	}
	httpx.Data(w, status, rec)
}

// actor is the signed-in user id for audit lines, 0 when unknown.
func actor(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
