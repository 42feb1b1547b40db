// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree and applies the platform variables.
// Any tag mismatch aborts startup, so the binary never runs with partial
// or malformed configuration.
//
// Cross-field rules that tags cannot express live in `crossCheck`.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	return crossCheck(c)
}

// crossCheck enforces rules spanning sections.
func crossCheck(c *Config) error {
	// Admin sessions live in Postgres, so a token secret only matters when
	// a database is configured.
	if c.Database.Enabled() && c.Auth.TokenSecret == "" {
		return errors.New("auth.token_secret is required when a database is configured")
	}
	if c.Database.MaxIdle > c.Database.MaxOpen {
		return errors.New("database.max_idle must not exceed database.max_open")
	}
	return nil
}
