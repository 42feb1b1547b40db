// internal/resource/store.go
//
// Resource engine: persistence.
//
// Context
//   Store is the single query module behind every entity.  SQL is built
//   from the Definition, whose identifiers were checked at load time, so
//   only values travel as bind parameters.  Reads go through sqlx MapScan
//   and are normalized per field type before they reach JSON.
//
// Workflow
//   •  List / Get / GetBySlug: `deleted_at IS NULL` always; the visibility
//      gate only for public callers.  Owned children load in one IN query.
//   •  Create / Update: one transaction covering uniqueness checks, the
//      parent write, and the child replacement.  The transaction rolls back
//      unless it commits.
//   •  Delete: soft delete with no `deleted_at` filter, so a second call
//      overwrites the timestamp and is otherwise a no-op.
//
// Notes
//   A nil *sqlx.DB is legal.  Every method then returns ErrNoDatabase and
//   the callers decide between degraded output and 503.
//
//------------------------------------------------------------------------------

package resource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/slug"
)

// Record is one decoded row keyed by JSON name.
type Record map[string]any

// ID returns the record's primary key, or zero.
func (r Record) ID() int64 {
	id, _ := r[ColID].(int64)
	return id
}

// ListOptions narrows a List call.
type ListOptions struct {
	// PublicOnly applies the definition's visibility gate.
	PublicOnly bool
}

// Store runs every entity's queries.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps db, which may be nil when no DSN is configured.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Enabled reports whether a database handle is present.
func (s *Store) Enabled() bool { return s != nil && s.db != nil }

// DB exposes the handle for packages with hand-written SQL.
func (s *Store) DB() *sqlx.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return ErrNoDatabase
	}
	return s.db.PingContext(ctx)
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

// List returns all live rows in the definition's order.
func (s *Store) List(ctx context.Context, def *Definition, opts ListOptions) ([]Record, error) {
	if !s.Enabled() {
		return nil, ErrNoDatabase
	}

	q := selectSQL(def)
	if opts.PublicOnly {
		q += visibilitySQL(def)
	}
	q += " ORDER BY " + orderBy(def)

	rows, err := s.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", def.Name, err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("list %s scan: %w", def.Name, err)
		}
		out = append(out, decode(def, m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", def.Name, err)
	}

	if err := s.attachChildren(ctx, def, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the live row with id, or nil when there is none.
func (s *Store) Get(ctx context.Context, def *Definition, id int64, publicOnly bool) (Record, error) {
	return s.getWhere(ctx, def, "t."+ColID, id, publicOnly)
}

// GetBySlug returns the live row whose slug matches, or nil.  Entities
// without a slug field never match.
func (s *Store) GetBySlug(ctx context.Context, def *Definition, value string, publicOnly bool) (Record, error) {
	sf := def.SlugField()
	if sf == nil {
		if !s.Enabled() {
			return nil, ErrNoDatabase
		}
		return nil, nil
	}
	return s.getWhere(ctx, def, "t."+sf.ColumnName(), value, publicOnly)
}

func (s *Store) getWhere(ctx context.Context, def *Definition, col string, arg any, publicOnly bool) (Record, error) {
	if !s.Enabled() {
		return nil, ErrNoDatabase
	}

	q := selectSQL(def) + " AND " + col + " = $1"
	if publicOnly {
		q += visibilitySQL(def)
	}

	m := make(map[string]any)
	if err := s.db.QueryRowxContext(ctx, q, arg).MapScan(m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", def.Name, err)
	}

	rec := decode(def, m)
	if err := s.attachChildren(ctx, def, []Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// attachChildren loads every owned collection for recs in one query per
// child table.
func (s *Store) attachChildren(ctx context.Context, def *Definition, recs []Record) error {
	if len(def.Children) == 0 || len(recs) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(recs))
	byID := make(map[int64]Record, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID())
		byID[r.ID()] = r
	}

	for i := range def.Children {
		c := &def.Children[i]
		for _, r := range recs {
			r[c.Name] = []Record{}
		}

		cols := []string{ColID, c.ForeignKey}
		for j := range c.Fields {
			cols = append(cols, c.Fields[j].ColumnName())
		}
		order := c.ForeignKey + " ASC, " + ColID + " ASC"
		if c.Order != "" {
			order = c.ForeignKey + " ASC, " + c.Order + ", " + ColID + " ASC"
		}
		q, args, err := sqlx.In(
			"SELECT "+strings.Join(cols, ", ")+" FROM "+c.Table+
				" WHERE "+c.ForeignKey+" IN (?) ORDER BY "+order, ids)
		if err != nil {
			return fmt.Errorf("children %s: %w", c.Name, err)
		}

		rows, err := s.db.QueryxContext(ctx, s.db.Rebind(q), args...)
		if err != nil {
			return fmt.Errorf("children %s: %w", c.Name, err)
		}
		for rows.Next() {
			m := make(map[string]any)
			if err := rows.MapScan(m); err != nil {
				rows.Close()
				return fmt.Errorf("children %s scan: %w", c.Name, err)
			}
			parent := byID[asInt64(m[c.ForeignKey])]
			if parent == nil {
				continue
			}
			row := Record{ColID: asInt64(m[ColID])}
			for j := range c.Fields {
				f := &c.Fields[j]
				row[f.Name] = normalize(f.Type, m[f.ColumnName()])
			}
			parent[c.Name] = append(parent[c.Name].([]Record), row)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("children %s: %w", c.Name, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

// Create inserts a row (and its children) and returns the new id.  Common
// columns fall back to display_order 0, is_active TRUE, and published_at
// NOW() when the input leaves them out.
func (s *Store) Create(ctx context.Context, def *Definition, v *Values) (int64, error) {
	if !s.Enabled() {
		return 0, ErrNoDatabase
	}

	var id int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := prepareWrite(ctx, tx, def, v, 0); err != nil {
			return err
		}

		cols := v.Columns()
		exprs := make([]string, 0, len(cols)+3)
		args := make([]any, 0, len(cols))
		for i, c := range cols {
			val, _ := v.Get(c)
			exprs = append(exprs, "$"+strconv.Itoa(i+1))
			args = append(args, val)
		}
		if def.Ordered && !v.Has(ColDisplayOrder) {
			cols, exprs = append(cols, ColDisplayOrder), append(exprs, "0")
		}
		switch def.Visibility {
		case VisibilityActive:
			if !v.Has(ColIsActive) {
				cols, exprs = append(cols, ColIsActive), append(exprs, "TRUE")
			}
		case VisibilityPublished:
			if !v.Has(ColPublishedAt) {
				cols, exprs = append(cols, ColPublishedAt), append(exprs, "NOW()")
			}
		}
		if len(cols) == 0 {
			return errors.New("nothing to insert")
		}

		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
			def.Table, strings.Join(cols, ", "), strings.Join(exprs, ", "))
		if err := tx.QueryRowxContext(ctx, q, args...).Scan(&id); err != nil {
			return err
		}
		return writeChildren(ctx, tx, def, id, v, false)
	})
	if err != nil {
		return 0, mapWriteError(def, "create", err)
	}
	return id, nil
}

// Update applies only the columns present in v, always touching
// updated_at.  It reports false when no live row has id.
func (s *Store) Update(ctx context.Context, def *Definition, id int64, v *Values) (bool, error) {
	if !s.Enabled() {
		return false, ErrNoDatabase
	}

	found := false
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := prepareWrite(ctx, tx, def, v, id); err != nil {
			return err
		}

		cols := v.Columns()
		sets := make([]string, 0, len(cols)+1)
		args := make([]any, 0, len(cols)+1)
		for i, c := range cols {
			val, _ := v.Get(c)
			sets = append(sets, c+" = $"+strconv.Itoa(i+1))
			args = append(args, val)
		}
		sets = append(sets, ColUpdatedAt+" = NOW()")
		args = append(args, id)

		q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d AND deleted_at IS NULL",
			def.Table, strings.Join(sets, ", "), len(args))
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		found = true
		return writeChildren(ctx, tx, def, id, v, true)
	})
	if err != nil {
		return false, mapWriteError(def, "update", err)
	}
	return found, nil
}

// Delete soft-deletes the row.  It reports false only when the id never
// existed; deleting twice is not an error.
func (s *Store) Delete(ctx context.Context, def *Definition, id int64) (bool, error) {
	if !s.Enabled() {
		return false, ErrNoDatabase
	}

	q := fmt.Sprintf("UPDATE %s SET deleted_at = NOW() WHERE id = $1", def.Table)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", def.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", def.Name, err)
	}
	return n > 0, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// prepareWrite resolves derived slugs and rejects duplicates and dangling
// references before the write.  selfID excludes the row being updated.
func prepareWrite(ctx context.Context, tx *sqlx.Tx, def *Definition, v *Values, selfID int64) error {
	errs := ValidationErrors{}

	for i := range def.Fields {
		f := &def.Fields[i]
		col := f.ColumnName()
		raw, ok := v.Get(col)
		if !ok || raw == nil {
			continue
		}

		switch {
		case f.Type == TypeSlug:
			base := raw.(string)
			if v.derived[col] {
				var qerr error
				free := slug.Unique(base, func(candidate string) bool {
					taken, err := exists(ctx, tx, def.Table, col+" = $1", candidate, selfID)
					if err != nil {
						qerr = err
						return false
					}
					return taken
				})
				if qerr != nil {
					return qerr
				}
				v.Set(col, free)
				continue
			}
			taken, err := exists(ctx, tx, def.Table, col+" = $1", base, selfID)
			if err != nil {
				return err
			}
			if taken {
				errs.Add(f.Name, takenMsg(f))
			}

		case f.Unique:
			taken, err := exists(ctx, tx, def.Table, "lower("+col+") = lower($1)", raw, selfID)
			if err != nil {
				return err
			}
			if taken {
				errs.Add(f.Name, takenMsg(f))
			}

		case f.Type == TypeRef:
			// On update the row may keep a target that has since been
			// deleted; only a changed value must point at a live row.
			q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND deleted_at IS NULL)", f.Ref.Table)
			args := []any{raw}
			if selfID > 0 {
				q += fmt.Sprintf(" OR EXISTS (SELECT 1 FROM %s WHERE id = $2 AND %s = $1)", def.Table, col)
				args = append(args, selfID)
			}
			var ok bool
			if err := tx.QueryRowxContext(ctx, q, args...).Scan(&ok); err != nil {
				return err
			}
			if !ok {
				errs.Add(f.Name, fmt.Sprintf("The selected %s is invalid.", f.DisplayLabel()))
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func exists(ctx context.Context, tx *sqlx.Tx, table, cond string, arg any, selfID int64) (bool, error) {
	q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s AND deleted_at IS NULL AND id <> $2)", table, cond)
	var ok bool
	err := tx.QueryRowxContext(ctx, q, arg, selfID).Scan(&ok)
	return ok, err
}

// writeChildren inserts bound child rows.  With replace set the existing
// collection is removed first.  Collections absent from v are untouched.
func writeChildren(ctx context.Context, tx *sqlx.Tx, def *Definition, parentID int64, v *Values, replace bool) error {
	for i := range def.Children {
		c := &def.Children[i]
		rows, ok := v.Children(c.Name)
		if !ok {
			continue
		}
		if replace {
			q := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", c.Table, c.ForeignKey)
			if _, err := tx.ExecContext(ctx, q, parentID); err != nil {
				return err
			}
		}
		for _, row := range rows {
			cols := []string{c.ForeignKey}
			marks := []string{"$1"}
			args := []any{parentID}
			for j := range c.Fields {
				col := c.Fields[j].ColumnName()
				val, present := row[col]
				if !present {
					continue
				}
				args = append(args, val)
				cols = append(cols, col)
				marks = append(marks, "$"+strconv.Itoa(len(args)))
			}
			q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				c.Table, strings.Join(cols, ", "), strings.Join(marks, ", "))
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return err
			}
		}
	}
	return nil
}

// mapWriteError turns unique violations on `ux_<table>_<column>` indexes
// into ValidationErrors; that covers two writers racing past prepareWrite.
func mapWriteError(def *Definition, op string, err error) error {
	if _, ok := IsValidation(err); ok {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		prefix := "ux_" + def.Table + "_"
		if col, ok := strings.CutPrefix(pgErr.ConstraintName, prefix); ok {
			for i := range def.Fields {
				f := &def.Fields[i]
				if f.ColumnName() == col {
					return ValidationErrors{f.Name: {takenMsg(f)}}
				}
			}
		}
	}
	return fmt.Errorf("%s %s: %w", op, def.Name, err)
}

func takenMsg(f *Field) string {
	return fmt.Sprintf("The %s has already been taken.", f.DisplayLabel())
}

// -----------------------------------------------------------------------------
// SQL building
// -----------------------------------------------------------------------------

// selectSQL returns the SELECT … WHERE t.deleted_at IS NULL prefix.  The
// table is aliased t; ref joins are r1, r2, and so on.
func selectSQL(def *Definition) string {
	cols := []string{"t." + ColID}
	var joins strings.Builder

	n := 0
	for i := range def.Fields {
		f := &def.Fields[i]
		if f.Type == TypePassword {
			continue
		}
		cols = append(cols, "t."+f.ColumnName())
		if f.Type == TypeRef {
			n++
			alias := "r" + strconv.Itoa(n)
			cols = append(cols, alias+"."+f.Ref.Label+" AS "+f.Ref.As)
			fmt.Fprintf(&joins, " LEFT JOIN %s %s ON %s.id = t.%s AND %s.deleted_at IS NULL",
				f.Ref.Table, alias, alias, f.ColumnName(), alias)
		}
	}

	if def.Ordered {
		cols = append(cols, "t."+ColDisplayOrder)
	}
	switch def.Visibility {
	case VisibilityActive:
		cols = append(cols, "t."+ColIsActive)
	case VisibilityPublished:
		cols = append(cols, "t."+ColPublishedAt)
	}
	cols = append(cols, "t."+ColCreatedAt, "t."+ColUpdatedAt)

	return "SELECT " + strings.Join(cols, ", ") + " FROM " + def.Table + " t" +
		joins.String() + " WHERE t." + ColDeletedAt + " IS NULL"
}

func visibilitySQL(def *Definition) string {
	switch def.Visibility {
	case VisibilityActive:
		return " AND t.is_active = TRUE"
	case VisibilityPublished:
		return " AND t.published_at IS NOT NULL AND t.published_at <= NOW()"
	}
	return ""
}

// orderBy qualifies the definition's ORDER BY and appends an id tiebreak
// in the direction of the last term.
func orderBy(def *Definition) string {
	order := def.Order
	if order == "" {
		if def.Ordered {
			order = ColDisplayOrder + " ASC"
		} else {
			order = ColID + " ASC"
		}
	}

	terms := strings.Split(order, ", ")
	hasID := false
	for i, term := range terms {
		if strings.HasPrefix(term, ColID+" ") {
			hasID = true
		}
		terms[i] = "t." + term
	}
	if !hasID {
		dir := " ASC"
		if strings.HasSuffix(terms[len(terms)-1], " DESC") {
			dir = " DESC"
		}
		terms = append(terms, "t."+ColID+dir)
	}
	return strings.Join(terms, ", ")
}

// -----------------------------------------------------------------------------
// Decoding
// -----------------------------------------------------------------------------

func decode(def *Definition, m map[string]any) Record {
	rec := Record{ColID: asInt64(m[ColID])}

	for i := range def.Fields {
		f := &def.Fields[i]
		if f.Type == TypePassword {
			continue
		}
		val := normalize(f.Type, m[f.ColumnName()])
		rec[f.Name] = val

		if f.Type == TypeRef {
			label := normalize(TypeText, m[f.Ref.As])
			if val != nil && label == nil {
				label = f.Ref.Missing
			}
			rec[f.Ref.As] = label
		}
	}

	if def.Ordered {
		rec[ColDisplayOrder] = asInt64(m[ColDisplayOrder])
	}
	switch def.Visibility {
	case VisibilityActive:
		rec[ColIsActive] = normalize(TypeBool, m[ColIsActive])
	case VisibilityPublished:
		rec[ColPublishedAt] = normalize(TypeTimestamp, m[ColPublishedAt])
	}
	rec[ColCreatedAt] = normalize(TypeTimestamp, m[ColCreatedAt])
	rec[ColUpdatedAt] = normalize(TypeTimestamp, m[ColUpdatedAt])
	return rec
}

// normalize maps driver values to JSON-friendly ones.  NUMERIC arrives as
// text from pgx, DATE as a time.Time at midnight.
func normalize(t FieldType, val any) any {
	if b, ok := val.([]byte); ok {
		val = string(b)
	}
	if val == nil {
		return nil
	}

	switch t {
	case TypeInt, TypeRef:
		return asInt64(val)
	case TypeDecimal:
		switch x := val.(type) {
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return x
			}
			return f
		case float32:
			return float64(x)
		}
		return val
	case TypeBool:
		if b, ok := val.(bool); ok {
			return b
		}
		b, _ := toBool(val)
		return b
	case TypeDate:
		if ts, ok := val.(time.Time); ok {
			return ts.Format("2006-01-02")
		}
		return val
	case TypeTimestamp:
		if ts, ok := val.(time.Time); ok {
			return ts.UTC()
		}
		return val
	}
	return val
}

func asInt64(val any) int64 {
	switch x := val.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case []byte:
		n, _ := strconv.ParseInt(string(x), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	}
	return 0
}
