package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// account is a users row including the password hash.
type account struct {
	User
	PasswordHash sql.NullString `db:"password_hash"`
}

// Users reads the users table that the users resource schema creates.
type Users struct {
	db *sqlx.DB
}

// NewUsers returns a Users over db.
func NewUsers(db *sqlx.DB) *Users { return &Users{db: db} }

func (u *Users) byEmail(ctx context.Context, email string) (*account, error) {
	var a account
	err := u.db.GetContext(ctx, &a,
		`SELECT id, name, email, COALESCE(role, 'editor') AS role, password_hash FROM users WHERE lower(email) = $1 AND deleted_at IS NULL`,
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user by email: %w", err)
	}
	return &a, nil
}

// ByID returns the live user with id, or nil.
func (u *Users) ByID(ctx context.Context, id int64) (*User, error) {
	var usr User
	err := u.db.GetContext(ctx, &usr,
		`SELECT id, name, email, COALESCE(role, 'editor') AS role FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return &usr, nil
}

// Count returns the number of live users.
func (u *Users) Count(ctx context.Context) (int, error) {
	var n int
	if err := u.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
