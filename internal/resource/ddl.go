// internal/resource/ddl.go
//
// Table DDL generated from a Definition.  Statements are idempotent so the
// whole set can run on every boot through database.Migrate.
//
// Index naming
//   ix_<table>_live      partial index over live rows in list order
//   ux_<table>_<column>  partial unique index; mapWriteError relies on it
//   ix_<child>_<fk>      child lookup by parent

package resource

import (
	"fmt"
	"strings"
)

// Migrations returns CREATE TABLE and CREATE INDEX statements for the
// definition and its children.
func (d *Definition) Migrations() []string {
	cols := []string{ColID + " BIGSERIAL PRIMARY KEY"}
	for i := range d.Fields {
		cols = append(cols, columnDDL(&d.Fields[i]))
	}
	if d.Ordered {
		cols = append(cols, ColDisplayOrder+" INTEGER NOT NULL DEFAULT 0")
	}
	switch d.Visibility {
	case VisibilityActive:
		cols = append(cols, ColIsActive+" BOOLEAN NOT NULL DEFAULT TRUE")
	case VisibilityPublished:
		cols = append(cols, ColPublishedAt+" TIMESTAMPTZ NULL")
	}
	cols = append(cols,
		ColCreatedAt+" TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		ColUpdatedAt+" TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		ColDeletedAt+" TIMESTAMPTZ NULL",
	)

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.Table, strings.Join(cols, ",\n\t")),
	}

	live := ColID
	if d.Ordered {
		live = ColDisplayOrder + ", " + ColID
	}
	stmts = append(stmts, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS ix_%s_live ON %s (%s) WHERE %s IS NULL",
		d.Table, d.Table, live, ColDeletedAt))

	for i := range d.Fields {
		f := &d.Fields[i]
		col := f.ColumnName()
		switch {
		case f.Type == TypeSlug:
			stmts = append(stmts, fmt.Sprintf(
				"CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_%s ON %s (%s) WHERE %s IS NULL",
				d.Table, col, d.Table, col, ColDeletedAt))
		case f.Unique:
			stmts = append(stmts, fmt.Sprintf(
				"CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_%s ON %s (lower(%s)) WHERE %s IS NULL",
				d.Table, col, d.Table, col, ColDeletedAt))
		}
	}

	for i := range d.Children {
		c := &d.Children[i]
		ccols := []string{
			ColID + " BIGSERIAL PRIMARY KEY",
			fmt.Sprintf("%s BIGINT NOT NULL REFERENCES %s (%s) ON DELETE CASCADE", c.ForeignKey, d.Table, ColID),
		}
		for j := range c.Fields {
			ccols = append(ccols, columnDDL(&c.Fields[j]))
		}
		stmts = append(stmts,
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", c.Table, strings.Join(ccols, ",\n\t")),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS ix_%s_%s ON %s (%s)", c.Table, c.ForeignKey, c.Table, c.ForeignKey),
		)
	}
	return stmts
}

// columnDDL maps a field to its column definition.  Only booleans are
// NOT NULL; every other rule lives in the validate tag.
func columnDDL(f *Field) string {
	col := f.ColumnName()
	switch f.Type {
	case TypeInt:
		return col + " INTEGER NULL"
	case TypeDecimal:
		return col + " NUMERIC(12,2) NULL"
	case TypeBool:
		def := "FALSE"
		if b, ok := f.Default.(bool); ok && b {
			def = "TRUE"
		}
		return col + " BOOLEAN NOT NULL DEFAULT " + def
	case TypeDate:
		return col + " DATE NULL"
	case TypeTimestamp:
		return col + " TIMESTAMPTZ NULL"
	case TypeRef:
		return col + " BIGINT NULL"
	default:
		return col + " TEXT NULL"
	}
}
