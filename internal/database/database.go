// Package database centralises sqlx connection helpers.  The driver is
// jackc/pgx/v5 registered through its database/sql adapter under the name
// "pgx", which sqlx maps to `$n` bind variables.
//
// Public entry points:
//
//	Open(ctx, dsn)                      – quick helper with default pool sizes.
//	OpenWithOptions(ctx, dsn, Options)  – fine-grained control.
//	Migrate(ctx, db, stmts)             – run idempotent DDL in one tx.
//
// Both open helpers Ping the database before returning so callers can fail
// fast during bootstrap.  Callers should Close() the returned *sqlx.DB when
// no longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DriverName is the database/sql driver registered by pgx/v5/stdlib.
const DriverName = "pgx"

// Options tunes the pool and the boot-time connection attempts.
type Options struct {
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Retries         int           // extra Ping attempts after the first
	RetryDelay      time.Duration // doubled after each failed attempt
}

// DefaultOptions returns 15 max open, 5 idle, a 30-minute lifetime, and
// three retries starting at one second.
func DefaultOptions() Options {
	return Options{
		MaxOpen:         15,
		MaxIdle:         5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         3,
		RetryDelay:      time.Second,
	}
}

// Open returns a *sqlx.DB with DefaultOptions.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, DefaultOptions())
}

// OpenWithOptions opens the pool and pings it, retrying with exponential
// backoff so a database that is still starting does not kill the boot.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpen)
	db.SetMaxIdleConns(opts.MaxIdle)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := pingWithRetry(ctx, db, opts); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func pingWithRetry(ctx context.Context, db *sqlx.DB, opts Options) error {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	var err error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == opts.Retries {
			break
		}
		zap.S().Warnw("database ping failed, retrying",
			"attempt", attempt+1, "delay", delay, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("database ping: %w", err)
}
