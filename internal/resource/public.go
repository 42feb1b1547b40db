// internal/resource/public.go
//
// Degraded-mode reads for the marketing site.
//
// Context
//   Public pages must always render.  PublicReader never returns an error:
//   a missing DSN or a failing query yields an empty Result with Degraded
//   set, the cause logged, and safari_content_degraded_total bumped.  The
//   caller then picks fallback content.
//
// Notes
//   Identical concurrent reads share one query through singleflight.  The
//   shared query runs on a context detached from any single request (with
//   its own timeout) so one visitor hanging up does not fail the others.

package resource

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/metrics"
)

// Result is a public list read.  Err is kept for logs and tests; it is
// never sent to visitors.
type Result struct {
	Items    []Record
	Degraded bool
	Err      error
}

// PublicReader serves visibility-gated lists in degraded mode.
type PublicReader struct {
	store   *Store
	timeout time.Duration
	group   singleflight.Group
}

// NewPublicReader wraps store.  A zero timeout means ten seconds.
func NewPublicReader(store *Store, timeout time.Duration) *PublicReader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PublicReader{store: store, timeout: timeout}
}

// List returns the public rows of def.
func (p *PublicReader) List(ctx context.Context, def *Definition) Result {
	v, err, _ := p.group.Do(def.Name, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		return p.store.List(qctx, def, ListOptions{PublicOnly: true})
	})
	if err != nil {
		reason := "error"
		if errors.Is(err, ErrNoDatabase) {
			reason = "no_database"
		} else {
			zap.S().Warnw("public read degraded", "resource", def.Name, "err", err)
		}
		metrics.ContentDegradedTotal.WithLabelValues(def.Name, reason).Inc()
		return Result{Items: []Record{}, Degraded: true, Err: err}
	}

	// Callers may annotate records; never hand the shared slice out twice.
	shared := v.([]Record)
	items := make([]Record, len(shared))
	for i, r := range shared {
		cp := make(Record, len(r))
		for k, val := range r {
			cp[k] = val
		}
		items[i] = cp
	}
	return Result{Items: items}
}
