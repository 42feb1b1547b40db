// internal/notify/notify.go
//
// Staff notifications for new enquiries.
//
// Context
//   When a visitor submits a contact message or a booking request, staff
//   should hear about it without the visitor waiting on a mail relay or a
//   chat webhook.  Handlers build an Event and hand it to Async, which
//   delivers it on its own goroutine with its own deadline.
//
//   Two sinks exist: LogNotifier (always on, writes an INFO line) and
//   WebhookNotifier (optional, posts the event as JSON to
//   `notify.webhook_url`, e.g. a Slack or Teams incoming webhook).  Multi
//   fans out to both.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/metrics"
)

// Event is one enquiry worth telling staff about.
type Event struct {
	Kind    string    `json:"kind"` // "contact" or "booking"
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Summary string    `json:"summary"`
	Link    string    `json:"link,omitempty"` // admin URL for the record
	Country string    `json:"country,omitempty"`
	Agent   string    `json:"agent,omitempty"`
	At      time.Time `json:"at"`
}

// Text renders the one-line message used by chat webhooks.
func (e Event) Text() string {
	s := fmt.Sprintf("New %s #%d from %s <%s>: %s", e.Kind, e.ID, e.Name, e.Email, e.Summary)
	if e.Link != "" {
		s += " " + e.Link
	}
	return s
}

// Notifier delivers an Event.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

/*──────────────────────────── log sink ─────────────────────────────────────*/

// LogNotifier writes events to the global logger.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, e Event) error {
	zap.S().Infow("enquiry received",
		"kind", e.Kind, "id", e.ID, "email", e.Email,
		"country", e.Country, "agent", e.Agent)
	return nil
}

/*──────────────────────────── webhook sink ─────────────────────────────────*/

// WebhookNotifier posts {"text": ..., "event": {...}} to URL.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// NewWebhook returns a notifier whose client times out after timeout.
func NewWebhook(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (w *WebhookNotifier) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(map[string]any{"text": e.Text(), "event": e})
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook answered %d", resp.StatusCode)
	}
	return nil
}

/*──────────────────────────── fan-out ──────────────────────────────────────*/

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async delivers e on a new goroutine, detached from the request's
// cancellation but bounded by timeout.  Failures are logged and counted.
// The returned channel is closed once delivery finishes.
func Async(ctx context.Context, n Notifier, e Event, timeout time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	go func() {
		defer close(done)
		defer cancel()
		if err := n.Notify(ctx, e); err != nil {
			metrics.NotificationErrorsTotal.Inc()
			zap.S().Warnw("notification failed", "kind", e.Kind, "id", e.ID, "err", err)
		}
	}()
	return done
}
