package resource

import (
	"strings"
	"testing"
)

func TestMigrations_ContentTable(t *testing.T) {
	stmts := mustParse(t, aboutStatsYAML).Migrations()
	if len(stmts) != 2 {
		t.Fatalf("got %d statements", len(stmts))
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS about_stats",
		"id BIGSERIAL PRIMARY KEY",
		"value TEXT NULL",
		"display_order INTEGER NOT NULL DEFAULT 0",
		"is_active BOOLEAN NOT NULL DEFAULT TRUE",
		"deleted_at TIMESTAMPTZ NULL",
	} {
		if !strings.Contains(stmts[0], want) {
			t.Errorf("table DDL missing %q:\n%s", want, stmts[0])
		}
	}
	if stmts[1] != "CREATE INDEX IF NOT EXISTS ix_about_stats_live ON about_stats (display_order, id) WHERE deleted_at IS NULL" {
		t.Errorf("index = %q", stmts[1])
	}
}

func TestMigrations_SlugAndChildren(t *testing.T) {
	stmts := strings.Join(mustParse(t, itinerariesYAML).Migrations(), "\n")
	for _, want := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_itineraries_slug ON itineraries (slug) WHERE deleted_at IS NULL",
		"price_from NUMERIC(12,2) NULL",
		"CREATE TABLE IF NOT EXISTS itinerary_days",
		"itinerary_id BIGINT NOT NULL REFERENCES itineraries (id) ON DELETE CASCADE",
		"CREATE INDEX IF NOT EXISTS ix_itinerary_days_itinerary_id ON itinerary_days (itinerary_id)",
	} {
		if !strings.Contains(stmts, want) {
			t.Errorf("DDL missing %q", want)
		}
	}
}

func TestMigrations_UniqueAndPassword(t *testing.T) {
	stmts := strings.Join(mustParse(t, usersYAML).Migrations(), "\n")
	for _, want := range []string{
		"password_hash TEXT NULL",
		"notify_bookings BOOLEAN NOT NULL DEFAULT FALSE",
		"ON users (lower(email)) WHERE deleted_at IS NULL",
	} {
		if !strings.Contains(stmts, want) {
			t.Errorf("DDL missing %q", want)
		}
	}
	if strings.Contains(stmts, "display_order") {
		t.Error("unordered resource got a display_order column")
	}
}
