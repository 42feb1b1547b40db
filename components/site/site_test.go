package site

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/components/content"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

func serve(t *testing.T, store *resource.Store) Home {
	t.Helper()
	reg, err := content.LoadRegistry()
	require.NoError(t, err)

	c := &Component{}
	require.NoError(t, c.Init(component.Env{
		Resources: reg,
		Store:     store,
		Public:    resource.NewPublicReader(store, time.Second),
	}))
	r := chi.NewRouter()
	c.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/site/home", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var home Home
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &home))
	return home
}

func TestHome_NoDatabaseServesFallbacks(t *testing.T) {
	home := serve(t, resource.NewStore(nil))

	assert.True(t, home.Degraded)
	assert.Len(t, home.Sections, 10)

	stats := home.Sections["about-stats"]
	assert.True(t, stats.Fallback)
	require.NotEmpty(t, stats.Items)
	assert.Equal(t, "18+", stats.Items[0]["value"])

	assert.True(t, home.Sections["destinations"].Fallback)
	assert.NotEmpty(t, home.Sections["destinations"].Items)
}

func TestHome_LiveSectionIsNotReplaced(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer raw.Close()
	mock.MatchExpectationsInOrder(false)

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM about_stats t`)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "value", "label", "display_order", "is_active", "created_at", "updated_at"}).
			AddRow(int64(1), "25+", "Years", int64(0), true, created, created))
	for _, table := range []string{
		"about_highlights", "contact_channels", "contact_quick_facts", "destinations",
		"feature_cards", "hero_slides", "itineraries", "lodges", "tour_packages",
	} {
		mock.ExpectQuery(regexp.QuoteMeta("FROM " + table + " t")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	}

	home := serve(t, resource.NewStore(sqlx.NewDb(raw, "pgx")))

	assert.False(t, home.Degraded)
	stats := home.Sections["about-stats"]
	assert.False(t, stats.Fallback)
	assert.Equal(t, "25+", stats.Items[0]["value"])
	assert.True(t, home.Sections["lodges"].Fallback, "empty sections fall back")
	assert.NoError(t, mock.ExpectationsWereMet())
}
