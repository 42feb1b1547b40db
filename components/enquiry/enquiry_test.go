// components/enquiry/enquiry_test.go
//
// Run: go test ./components/enquiry -v

package enquiry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/components/content"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/config"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/middleware"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/notify"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type harness struct {
	router  http.Handler
	mock    sqlmock.Sqlmock
	sent    *recorder
	pending []<-chan struct{}
}

func newHarness(t *testing.T, perMinute int) *harness {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	reg, err := content.LoadRegistry()
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.App.BaseURL = "https://safari.example.com/"

	h := &harness{mock: mock, sent: &recorder{}}
	c := &Component{done: func(ch <-chan struct{}) { h.pending = append(h.pending, ch) }}
	require.NoError(t, c.Init(component.Env{
		Config:    &cfg,
		Resources: reg,
		Store:     resource.NewStore(sqlx.NewDb(raw, "pgx")),
		Notifier:  h.sent,
		Limits:    component.Limits{Submit: middleware.NewLimiter("submit", perMinute)},
	}))
	r := chi.NewRouter()
	c.Routes(r)
	h.router = r
	return h
}

func (h *harness) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = "198.51.100.4:5000"
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	for _, ch := range h.pending {
		<-ch
	}
	h.pending = nil
	return rec
}

func TestContact_StoresMetadataAndNotifies(t *testing.T) {
	h := newHarness(t, 100)
	h.mock.ExpectBegin()
	h.mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO contact_messages (name, email, message, is_read, client_ip, user_agent, country) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
	)).WithArgs("Baraka", "baraka@example.com", "Is June good for the migration?", false,
		"198.51.100.4", sqlmock.AnyArg(), "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	h.mock.ExpectCommit()

	rec := h.post("/api/contact",
		`{"name":"Baraka","email":"Baraka@Example.com","message":"Is June good for the migration?","is_read":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Thank you, your message has been sent.","id":12}`, rec.Body.String())
	assert.NoError(t, h.mock.ExpectationsWereMet())

	require.Len(t, h.sent.events, 1)
	ev := h.sent.events[0]
	assert.Equal(t, "contact", ev.Kind)
	assert.Equal(t, int64(12), ev.ID)
	assert.Equal(t, "baraka@example.com", ev.Email)
	assert.Equal(t, "https://safari.example.com/admin/contact-messages/12", ev.Link)
	assert.Contains(t, ev.Agent, "[bot]")
}

func TestBooking_StatusAlwaysPending(t *testing.T) {
	h := newHarness(t, 100)
	h.mock.ExpectBegin()
	h.mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO bookings (full_name, email, guests, status, client_ip, user_agent, country) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
	)).WithArgs("Zawadi", "zawadi@example.com", int64(4), "pending", "198.51.100.4", sqlmock.AnyArg(), "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(30)))
	h.mock.ExpectCommit()

	rec := h.post("/api/bookings",
		`{"full_name":"Zawadi","email":"zawadi@example.com","guests":4,"status":"confirmed"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NoError(t, h.mock.ExpectationsWereMet())
	require.Len(t, h.sent.events, 1)
	assert.Equal(t, "4 guests", h.sent.events[0].Summary)
}

func TestBooking_UnknownPackageIs422(t *testing.T) {
	h := newHarness(t, 100)
	h.mock.ExpectBegin()
	h.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT EXISTS (SELECT 1 FROM tour_packages WHERE id = $1 AND deleted_at IS NULL)`,
	)).WithArgs(int64(999)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	h.mock.ExpectRollback()

	rec := h.post("/api/bookings",
		`{"tour_package_id":999,"full_name":"Zawadi","email":"zawadi@example.com","guests":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "The selected tour package is invalid.")
	assert.Empty(t, h.sent.events)
}

func TestContact_ValidationIs422(t *testing.T) {
	h := newHarness(t, 100)
	rec := h.post("/api/contact", `{"name":"","email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"name"`)
	assert.Contains(t, body, `"email"`)
	assert.Contains(t, body, `"message"`)
}

func TestSubmit_RateLimited(t *testing.T) {
	h := newHarness(t, 1)
	assert.Equal(t, http.StatusUnprocessableEntity, h.post("/api/contact", `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.post("/api/contact", `{}`).Code)
}

func TestInit_NeedsSchemas(t *testing.T) {
	reg, err := resource.NewRegistry()
	require.NoError(t, err)
	assert.Error(t, (&Component{}).Init(component.Env{Resources: reg}))
}
