package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := Event{Kind: "booking", ID: 7, Name: "Amani", Email: "amani@example.com", Summary: "Serengeti, 4 guests"}
	require.NoError(t, NewWebhook(srv.URL, time.Second).Notify(context.Background(), e))
	assert.Equal(t, "New booking #7 from Amani <amani@example.com>: Serengeti, 4 guests", got["text"])
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, time.Second).Notify(context.Background(), Event{Kind: "contact"})
	assert.ErrorContains(t, err, "502")
}

type failing struct{ calls int }

func (f *failing) Notify(context.Context, Event) error {
	f.calls++
	return errors.New("boom")
}

func TestMulti_JoinsErrors(t *testing.T) {
	f := &failing{}
	err := Multi{LogNotifier{}, f}.Notify(context.Background(), Event{Kind: "contact"})
	assert.Error(t, err)
	assert.Equal(t, 1, f.calls)
}

func TestAsync_SurvivesRequestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen error
	n := notifierFunc(func(ctx context.Context, _ Event) error {
		seen = ctx.Err()
		return nil
	})
	<-Async(ctx, n, Event{Kind: "contact"}, time.Second)
	assert.NoError(t, seen)
}

type notifierFunc func(context.Context, Event) error

func (f notifierFunc) Notify(ctx context.Context, e Event) error { return f(ctx, e) }
