package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

func probe(t *testing.T, store *resource.Store) *httptest.ResponseRecorder {
	t.Helper()
	c := &Component{}
	require.NoError(t, c.Init(component.Env{Store: store}))
	r := chi.NewRouter()
	c.Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	return rec
}

func TestHealth_Disabled(t *testing.T) {
	rec := probe(t, resource.NewStore(nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"disabled"}`, rec.Body.String())
}

func TestHealth_UpAndDown(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()
	store := resource.NewStore(sqlx.NewDb(raw, "pgx"))

	mock.ExpectPing()
	rec := probe(t, store)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, rec.Body.String())

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	rec = probe(t, store)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","database":"down"}`, rec.Body.String())
}
