// internal/database/migrate.go
//
// Schema bootstrap.
//
// Context
// -------
// Components return plain DDL from Migrations().  Every statement must be
// idempotent (`CREATE … IF NOT EXISTS`), so running the whole set on each
// boot is safe.  Postgres DDL is transactional, which means a failure
// half-way leaves the schema exactly as it was.

package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Migrate executes stmts in order inside one transaction.
func Migrate(ctx context.Context, db *sqlx.DB, stmts []string) (err error) {
	if len(stmts) == 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migrate commit: %w", err)
	}

	zap.S().Infow("schema migrated", "statements", len(stmts))
	return nil
}
