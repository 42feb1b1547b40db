// internal/session/session.go
//
// Server-side admin sessions.
//
// Context
//   Bearer tokens are signed JWTs, but a signature alone cannot be taken
//   back.  Every token therefore carries a `jti` that names a row in
//   admin_sessions.  A token is honoured only while its row exists, is not
//   revoked, and has not expired.  Logging out revokes the row.
//
// Workflow
//   •  Create   – called by the auth component right after login.
//   •  Active   – called by the auth middleware on every admin request.
//   •  Revoke   – logout.  RevokeUser – all sessions of one user.
//   •  Purge    – boot-time cleanup of rows that can never be valid again.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Session mirrors one admin_sessions row.
type Session struct {
	ID        string       `db:"id"`
	UserID    int64        `db:"user_id"`
	ExpiresAt time.Time    `db:"expires_at"`
	RevokedAt sql.NullTime `db:"revoked_at"`
	CreatedAt time.Time    `db:"created_at"`
	ClientIP  string       `db:"client_ip"`
	UserAgent string       `db:"user_agent"`
}

// Store persists sessions.
type Store struct {
	db *sqlx.DB
}

// NewStore returns a Store over db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// Migrations returns the admin_sessions DDL.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS admin_sessions (
	id         TEXT PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	client_ip  TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS ix_admin_sessions_user ON admin_sessions (user_id)`,
	}
}

// Create inserts s.  CreatedAt and RevokedAt are set by the database.
func (st *Store) Create(ctx context.Context, s Session) error {
	_, err := st.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, user_id, expires_at, client_ip, user_agent) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.ExpiresAt, s.ClientIP, s.UserAgent)
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	return nil
}

// Active returns the live session with id, or nil when it is unknown,
// revoked, or expired.
func (st *Store) Active(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := st.db.GetContext(ctx, &s,
		`SELECT id, user_id, expires_at, revoked_at, created_at, client_ip, user_agent FROM admin_sessions WHERE id = $1 AND revoked_at IS NULL AND expires_at > NOW()`,
		id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	return &s, nil
}

// Revoke marks one session revoked.  Revoking twice is harmless.
func (st *Store) Revoke(ctx context.Context, id string) error {
	_, err := st.db.ExecContext(ctx,
		`UPDATE admin_sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}
	return nil
}

// RevokeUser revokes every open session of userID and returns how many.
func (st *Store) RevokeUser(ctx context.Context, userID int64) (int64, error) {
	res, err := st.db.ExecContext(ctx,
		`UPDATE admin_sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("session revoke user: %w", err)
	}
	return res.RowsAffected()
}

// Purge deletes rows that expired or were revoked more than grace ago.
func (st *Store) Purge(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().Add(-grace).UTC()
	res, err := st.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE expires_at < $1 OR revoked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session purge: %w", err)
	}
	return res.RowsAffected()
}
