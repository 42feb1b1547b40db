// internal/resource/definition.go
//
// Resource engine: YAML schema loader.
//
// Context
//   Every admin-managed table (hero slides, destinations, bookings, users,
//   and the rest) is declared in one YAML file.  The file names the table,
//   the URL segment, the ordering, the visibility gate, and the domain
//   fields with their validation rules.  One generic Store, Binder, and
//   handler set then serve every entity, so adding a table means adding a
//   YAML file rather than another copy of list/get/create/update/delete.
//
// Workflow
//   •  Structs mirror the YAML schema: Definition → Field / Child.
//   •  Parse decodes one file and checks structural rules, including that
//      every identifier is safe to splice into SQL.
//   •  LoadFS walks an fs.FS (normally an embed.FS), parses every match,
//      and returns a Registry sorted by file name.
//   •  Registry.Lookup offers read-only access by URL segment.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FieldType selects coercion, validation, and the column type.
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeLongText  FieldType = "longtext"
	TypeInt       FieldType = "int"
	TypeDecimal   FieldType = "decimal"
	TypeBool      FieldType = "bool"
	TypeEmail     FieldType = "email"
	TypeURL       FieldType = "url"
	TypeDate      FieldType = "date"
	TypeTimestamp FieldType = "timestamp"
	TypeImage     FieldType = "image"
	TypeEnum      FieldType = "enum"
	TypeSlug      FieldType = "slug"
	TypeRef       FieldType = "ref"
	TypePassword  FieldType = "password"
)

var knownTypes = map[FieldType]bool{
	TypeText: true, TypeLongText: true, TypeInt: true, TypeDecimal: true,
	TypeBool: true, TypeEmail: true, TypeURL: true, TypeDate: true,
	TypeTimestamp: true, TypeImage: true, TypeEnum: true, TypeSlug: true,
	TypeRef: true, TypePassword: true,
}

// Visibility names the column that gates public reads.
type Visibility string

const (
	VisibilityNone      Visibility = "none"
	VisibilityActive    Visibility = "is_active"
	VisibilityPublished Visibility = "published_at"
)

// Common column names managed by the engine rather than declared in YAML.
const (
	ColID           = "id"
	ColDisplayOrder = "display_order"
	ColIsActive     = "is_active"
	ColPublishedAt  = "published_at"
	ColCreatedAt    = "created_at"
	ColUpdatedAt    = "updated_at"
	ColDeletedAt    = "deleted_at"
)

var reserved = map[string]bool{
	ColID: true, ColDisplayOrder: true, ColIsActive: true, ColPublishedAt: true,
	ColCreatedAt: true, ColUpdatedAt: true, ColDeletedAt: true,
}

// Ref describes a nullable pointer at another resource's table.  Reads
// LEFT JOIN the target and expose Label under As.  When the id is set but
// the target is gone (or soft-deleted) the output carries Missing instead.
type Ref struct {
	Table   string `yaml:"table"`
	Label   string `yaml:"label"`
	As      string `yaml:"as"`
	Missing string `yaml:"missing"`
}

// Field describes one domain column.
type Field struct {
	Name      string    `yaml:"name"`       // JSON key.  Required.
	Label     string    `yaml:"label"`      // Used in error messages.
	Type      FieldType `yaml:"type"`       // See FieldType.  Required.
	Column    string    `yaml:"column"`     // Defaults to Name.
	Validate  string    `yaml:"validate"`   // go-playground/validator tag.
	Default   any       `yaml:"default"`    // Applied on create when absent.
	Options   []string  `yaml:"options"`    // Enum values.
	From      string    `yaml:"from"`       // Slug source field.
	Unique    bool      `yaml:"unique"`     // Case-insensitive among live rows.
	ReadOnly  bool      `yaml:"read_only"`  // Set by the server only.
	AdminOnly bool      `yaml:"admin_only"` // Ignored on public submissions.
	Ref       *Ref      `yaml:"ref"`
}

// ColumnName returns the SQL column backing the field.
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// DisplayLabel returns Label or a humanized Name.
func (f *Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return strings.ReplaceAll(f.Name, "_", " ")
}

// Child declares an owned collection stored in its own table, such as an
// itinerary's days.  The parent is the unit of update: writing the child
// key replaces the whole collection.
type Child struct {
	Name       string  `yaml:"name"`
	Table      string  `yaml:"table"`
	ForeignKey string  `yaml:"foreign_key"`
	Order      string  `yaml:"order"`
	Fields     []Field `yaml:"fields"`
}

// Definition is one entity schema.
type Definition struct {
	Name       string     `yaml:"name"`       // URL segment, e.g. "about-stats".
	Table      string     `yaml:"table"`      // SQL table.
	Title      string     `yaml:"title"`      // Singular display name.
	Ordered    bool       `yaml:"ordered"`    // Has display_order.
	Order      string     `yaml:"order"`      // Explicit ORDER BY, optional.
	Visibility Visibility `yaml:"visibility"` // Public gate.
	Public     bool       `yaml:"public"`     // Exposed on /api/{name}.
	Role       string     `yaml:"role"`       // Role required on admin routes.
	Fields     []Field    `yaml:"fields"`
	Children   []Child    `yaml:"children"`
}

// Field looks up a field by JSON name.
func (d *Definition) Field(name string) (*Field, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// SlugField returns the slug field, or nil when the entity has none.
func (d *Definition) SlugField() *Field {
	for i := range d.Fields {
		if d.Fields[i].Type == TypeSlug {
			return &d.Fields[i]
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry holds parsed definitions in load order.
type Registry struct {
	defs   []*Definition
	byName map[string]*Definition
}

// NewRegistry builds a Registry, rejecting duplicate names or tables.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Definition, len(defs))}
	tables := make(map[string]string, len(defs))
	for _, d := range defs {
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("resource %q declared twice", d.Name)
		}
		if other, dup := tables[d.Table]; dup {
			return nil, fmt.Errorf("resources %q and %q share table %q", other, d.Name, d.Table)
		}
		tables[d.Table] = d.Name
		r.byName[d.Name] = d
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// LoadFS parses every file matching pattern inside fsys.
//
// Example:
//
//	//go:embed schemas/*.yaml
//	var schemas embed.FS
//	reg, err := resource.LoadFS(schemas, "schemas/*.yaml")
func LoadFS(fsys fs.FS, pattern string) (*Registry, error) {
	paths, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no resource schemas match %q", pattern)
	}
	sort.Strings(paths)

	defs := make([]*Definition, 0, len(paths))
	for _, p := range paths {
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", p, err)
		}
		d, err := Parse(raw, p)
		if err != nil {
			return nil, err // fail fast so issues surface loudly.
		}
		defs = append(defs, d)
	}
	return NewRegistry(defs...)
}

// Lookup returns a definition by URL segment.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// MustLookup is Lookup for names the caller ships in its own schema set.
func (r *Registry) MustLookup(name string) *Definition {
	d, ok := r.byName[name]
	if !ok {
		panic("resource: unknown definition " + name)
	}
	return d
}

// All returns every definition in load order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Public returns the definitions exposed on the public API.
func (r *Registry) Public() []*Definition {
	var out []*Definition
	for _, d := range r.defs {
		if d.Public {
			out = append(out, d)
		}
	}
	return out
}

// Migrations concatenates the DDL of every definition.
func (r *Registry) Migrations() []string {
	var out []string
	for _, d := range r.defs {
		out = append(out, d.Migrations()...)
	}
	return out
}

// -----------------------------------------------------------------------------
// Parsing and structural checks
// -----------------------------------------------------------------------------

var (
	identRe   = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	segmentRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	orderRe   = regexp.MustCompile(`^[a-z_][a-z0-9_]* (ASC|DESC)(, [a-z_][a-z0-9_]* (ASC|DESC))*$`)
)

// Parse decodes one YAML schema.  source is used in error messages only.
func Parse(raw []byte, source string) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var d Definition
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", source, err)
	}
	if d.Visibility == "" {
		d.Visibility = VisibilityNone
	}
	if err := check(&d); err != nil {
		return nil, fmt.Errorf("schema %s: %w", source, err)
	}
	return &d, nil
}

func check(d *Definition) error {
	if !segmentRe.MatchString(d.Name) {
		return fmt.Errorf("invalid name %q", d.Name)
	}
	if !identRe.MatchString(d.Table) {
		return fmt.Errorf("invalid table %q", d.Table)
	}
	switch d.Visibility {
	case VisibilityNone, VisibilityActive, VisibilityPublished:
	default:
		return fmt.Errorf("unknown visibility %q", d.Visibility)
	}
	if d.Public && d.Visibility == VisibilityNone {
		return errors.New("public resources need a visibility gate")
	}
	if d.Order != "" && !orderRe.MatchString(d.Order) {
		return fmt.Errorf("invalid order %q", d.Order)
	}
	if len(d.Fields) == 0 {
		return errors.New("no fields declared")
	}

	if err := checkFields(d.Fields, true); err != nil {
		return err
	}

	// Slug sources must exist and be textual.
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Type != TypeSlug || f.From == "" {
			continue
		}
		src, ok := d.Field(f.From)
		if !ok {
			return fmt.Errorf("field %q: slug source %q not declared", f.Name, f.From)
		}
		if src.Type != TypeText {
			return fmt.Errorf("field %q: slug source %q must be text", f.Name, f.From)
		}
	}

	childNames := make(map[string]bool)
	for i := range d.Children {
		c := &d.Children[i]
		if !identRe.MatchString(c.Name) || !identRe.MatchString(c.Table) || !identRe.MatchString(c.ForeignKey) {
			return fmt.Errorf("child %q: invalid identifiers", c.Name)
		}
		if c.Order != "" && !orderRe.MatchString(c.Order) {
			return fmt.Errorf("child %q: invalid order %q", c.Name, c.Order)
		}
		if _, clash := d.Field(c.Name); clash || childNames[c.Name] {
			return fmt.Errorf("child %q clashes with another key", c.Name)
		}
		childNames[c.Name] = true
		if err := checkFields(c.Fields, false); err != nil {
			return fmt.Errorf("child %q: %w", c.Name, err)
		}
	}
	return nil
}

// checkFields validates one field list.  Nested (child) fields may not use
// the types that need extra queries.
func checkFields(fields []Field, topLevel bool) error {
	names := make(map[string]bool, len(fields))
	for i := range fields {
		f := &fields[i]
		if f.Type == TypePassword && f.Column == "" {
			f.Column = "password_hash"
		}
		col := f.ColumnName()

		switch {
		case !identRe.MatchString(f.Name) || !identRe.MatchString(col):
			return fmt.Errorf("field %q: invalid identifier", f.Name)
		case reserved[f.Name] || reserved[col]:
			return fmt.Errorf("field %q: name is managed by the engine", f.Name)
		case names[f.Name]:
			return fmt.Errorf("duplicate field %q", f.Name)
		case !knownTypes[f.Type]:
			return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		case f.Type == TypeEnum && len(f.Options) == 0:
			return fmt.Errorf("field %q: enum needs options", f.Name)
		}
		names[f.Name] = true

		if !topLevel {
			switch f.Type {
			case TypeSlug, TypeRef, TypePassword:
				return fmt.Errorf("field %q: type %s not allowed in a child", f.Name, f.Type)
			}
			if f.Unique {
				return fmt.Errorf("field %q: unique not allowed in a child", f.Name)
			}
		}

		if f.Type == TypeRef {
			r := f.Ref
			if r == nil || !identRe.MatchString(r.Table) || !identRe.MatchString(r.Label) || !identRe.MatchString(r.As) {
				return fmt.Errorf("field %q: ref needs table, label, and as", f.Name)
			}
		}

		if err := checkTag(f); err != nil {
			return err
		}
	}
	return nil
}

// checkTag runs the validator once against the zero value so a typo in a
// tag fails at load time rather than panicking on the first request.
func checkTag(f *Field) (err error) {
	if f.Validate == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("field %q: bad validate tag %q: %v", f.Name, f.Validate, r)
		}
	}()
	_ = validate.Var(zeroOf(f), f.Validate)
	return nil
}
