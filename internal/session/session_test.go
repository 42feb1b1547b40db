// internal/session/session_test.go
//
// Unit-tests for the session store using sqlmock.
//
// Run: go test ./internal/session -v

package session

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	return NewStore(sqlx.NewDb(raw, "pgx")), mock
}

func TestCreate(t *testing.T) {
	st, mock := newMock(t)
	exp := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO admin_sessions (id, user_id, expires_at, client_ip, user_agent) VALUES ($1, $2, $3, $4, $5)`,
	)).WithArgs("jti-1", int64(3), exp, "203.0.113.9", "curl/8.0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.Create(context.Background(), Session{
		ID: "jti-1", UserID: 3, ExpiresAt: exp, ClientIP: "203.0.113.9", UserAgent: "curl/8.0",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestActive(t *testing.T) {
	st, mock := newMock(t)
	q := regexp.QuoteMeta(`FROM admin_sessions WHERE id = $1 AND revoked_at IS NULL AND expires_at > NOW()`)
	cols := []string{"id", "user_id", "expires_at", "revoked_at", "created_at", "client_ip", "user_agent"}
	now := time.Now().UTC()

	mock.ExpectQuery(q).WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("live", int64(3), now.Add(time.Hour), nil, now, "", ""))
	mock.ExpectQuery(q).WithArgs("gone").WillReturnRows(sqlmock.NewRows(cols))

	s, err := st.Active(context.Background(), "live")
	if err != nil || s == nil || s.UserID != 3 {
		t.Fatalf("Active(live) = %+v, %v", s, err)
	}
	s, err = st.Active(context.Background(), "gone")
	if err != nil || s != nil {
		t.Fatalf("Active(gone) = %+v, %v", s, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestRevoke(t *testing.T) {
	st, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admin_sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`)).
		WithArgs("jti-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admin_sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`)).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 2))

	if err := st.Revoke(context.Background(), "jti-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	n, err := st.RevokeUser(context.Background(), 3)
	if err != nil || n != 2 {
		t.Fatalf("RevokeUser = %d, %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestPurge(t *testing.T) {
	st, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM admin_sessions WHERE expires_at < $1 OR revoked_at < $1`)).
		WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := st.Purge(context.Background(), 24*time.Hour)
	if err != nil || n != 5 {
		t.Fatalf("Purge = %d, %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
