// internal/resource/bind.go
//
// Resource engine: input binding and validation.
//
// Context
//   Handlers decode a JSON object into map[string]any and hand it to
//   Binder.Bind together with the entity Definition.  Bind coerces each
//   declared field to its Go type, runs the field's validator tag, applies
//   type rules (enum options, image payloads, slug normalization, password
//   hashing), and returns Values keyed by column.  Unknown keys are
//   ignored.
//
// Workflow
//   •  ModeCreate: absent fields are checked as their zero value, so a
//      `required` tag fails; YAML defaults fill absent optional fields.
//   •  ModeUpdate: only present keys are touched.  That is what makes
//      partial updates partial.
//   •  ModeSubmit: like create, but admin_only fields and the engine's
//      common columns are ignored so visitors cannot set them.
//   •  Failures are collected per key into ValidationErrors.
//
//------------------------------------------------------------------------------

package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/media"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/slug"
)

var validate = validator.New()

// Mode selects create, update, or public-submission semantics.
type Mode int

const (
	ModeCreate Mode = iota + 1
	ModeUpdate
	ModeSubmit
)

// -----------------------------------------------------------------------------
// Values
// -----------------------------------------------------------------------------

// Values is bound input keyed by column, in field declaration order.
type Values struct {
	cols     map[string]any
	order    []string
	children map[string][]map[string]any
	derived  map[string]bool
}

// NewValues returns an empty Values.
func NewValues() *Values {
	return &Values{
		cols:     make(map[string]any),
		children: make(map[string][]map[string]any),
		derived:  make(map[string]bool),
	}
}

// Set stores val under column, keeping first-set order.
func (v *Values) Set(column string, val any) {
	if _, ok := v.cols[column]; !ok {
		v.order = append(v.order, column)
	}
	v.cols[column] = val
}

// Get returns the value stored under column.
func (v *Values) Get(column string) (any, bool) {
	val, ok := v.cols[column]
	return val, ok
}

// Has reports whether column was set.
func (v *Values) Has(column string) bool {
	_, ok := v.cols[column]
	return ok
}

// Columns lists set columns in order.
func (v *Values) Columns() []string { return slices.Clone(v.order) }

// Len counts set columns.
func (v *Values) Len() int { return len(v.order) }

// SetChildren replaces the rows for an owned collection.
func (v *Values) SetChildren(name string, rows []map[string]any) {
	v.children[name] = rows
}

// Children returns the rows bound for name and whether the key was given.
func (v *Values) Children(name string) ([]map[string]any, bool) {
	rows, ok := v.children[name]
	return rows, ok
}

// HasChildren reports whether any owned collection was bound.
func (v *Values) HasChildren() bool { return len(v.children) > 0 }

// -----------------------------------------------------------------------------
// Binder
// -----------------------------------------------------------------------------

// Binder converts decoded JSON into Values.
type Binder struct {
	// MaxImageBytes caps decoded image payloads.  Zero means unlimited.
	MaxImageBytes int
	// HashPassword turns a plaintext password into the stored hash.
	HashPassword func(string) (string, error)
}

// Bind validates input against def.  The error is ValidationErrors for bad
// input and a plain error for server-side failures such as hashing.
func (b Binder) Bind(def *Definition, input map[string]any, mode Mode) (*Values, error) {
	errs := ValidationErrors{}
	v := NewValues()

	for i := range def.Fields {
		f := &def.Fields[i]
		if f.ReadOnly {
			continue
		}
		raw, present := input[f.Name]
		if mode == ModeSubmit && f.AdminOnly {
			raw, present = nil, false // visitors get the default
		}
		val, set, msg := b.bindField(f, raw, present, mode)
		if msg != "" {
			errs.Add(f.Name, msg)
			continue
		}
		if !set {
			continue
		}
		if f.Type == TypePassword && val != nil {
			hashed, err := b.hash(val.(string))
			if err != nil {
				return nil, err
			}
			val = hashed
		}
		v.Set(f.ColumnName(), val)
	}

	if mode != ModeSubmit {
		bindCommon(def, input, mode, v, errs)
	}

	for i := range def.Children {
		c := &def.Children[i]
		raw, present := input[c.Name]
		if !present {
			continue
		}
		rows := b.bindChildren(c, raw, errs)
		if rows != nil {
			v.SetChildren(c.Name, rows)
		}
	}

	if mode != ModeUpdate {
		deriveSlugs(def, v, errs)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return v, nil
}

func (b Binder) hash(plain string) (string, error) {
	if b.HashPassword == nil {
		return "", errors.New("resource: password field bound without a hasher")
	}
	return b.HashPassword(plain)
}

// bindField returns the column value, whether to set it, and a user-facing
// message on failure.
func (b Binder) bindField(f *Field, raw any, present bool, mode Mode) (any, bool, string) {
	if !present {
		if mode == ModeUpdate {
			return nil, false, ""
		}
		if f.Default != nil {
			return b.bindField(f, f.Default, true, mode)
		}
		if f.Type == TypeSlug && f.From != "" {
			return nil, false, "" // derived after all fields are bound
		}
		if msg := checkValue(f, zeroOf(f)); msg != "" {
			return nil, false, msg
		}
		return nil, false, ""
	}

	if raw == nil || isBlank(raw) {
		switch {
		case f.Type == TypeSlug && (mode == ModeUpdate || f.From != ""):
			return nil, false, "" // keep existing or derive
		case f.Type == TypePassword && mode == ModeUpdate:
			return nil, false, "" // blank means unchanged
		case f.Type == TypeBool:
			return nil, false, fmt.Sprintf("The %s field must be true or false.", f.DisplayLabel())
		}
		if msg := checkValue(f, zeroOf(f)); msg != "" {
			return nil, false, msg
		}
		return nil, true, "" // explicit NULL
	}

	val, msg := coerce(f, raw)
	if msg != "" {
		return nil, false, msg
	}
	if msg := checkValue(f, val); msg != "" {
		return nil, false, msg
	}

	switch f.Type {
	case TypeEnum:
		if !slices.Contains(f.Options, val.(string)) {
			return nil, false, fmt.Sprintf("The selected %s is invalid.", f.DisplayLabel())
		}
	case TypeImage:
		if err := media.Check(val.(string), b.MaxImageBytes); err != nil {
			return nil, false, imageMsg(f, err)
		}
	case TypeSlug:
		val = slug.Make(val.(string))
	case TypeEmail:
		val = strings.ToLower(val.(string))
	}
	return val, true, ""
}

// bindCommon handles display_order, is_active, and published_at.
func bindCommon(def *Definition, input map[string]any, mode Mode, v *Values, errs ValidationErrors) {
	if def.Ordered {
		if raw, ok := input[ColDisplayOrder]; ok {
			n, err := toInt32(raw)
			if err != nil {
				errs.Add(ColDisplayOrder, "The display order must be an integer.")
			} else {
				v.Set(ColDisplayOrder, n)
			}
		}
	}

	switch def.Visibility {
	case VisibilityActive:
		if raw, ok := input[ColIsActive]; ok {
			on, err := toBool(raw)
			if err != nil {
				errs.Add(ColIsActive, "The is active field must be true or false.")
			} else {
				v.Set(ColIsActive, on)
			}
		}
	case VisibilityPublished:
		raw, ok := input[ColPublishedAt]
		if !ok {
			return
		}
		// Accept a timestamp, null (unpublish), or a boolean toggle.
		switch x := raw.(type) {
		case nil:
			v.Set(ColPublishedAt, nil)
		case bool:
			if x {
				v.Set(ColPublishedAt, time.Now().UTC())
			} else {
				v.Set(ColPublishedAt, nil)
			}
		default:
			ts, err := toTimestamp(raw)
			if err != nil {
				errs.Add(ColPublishedAt, "The published at field must be a valid date and time.")
			} else {
				v.Set(ColPublishedAt, ts)
			}
		}
	}
}

// bindChildren binds every row of an owned collection with create
// semantics.  It returns nil when the payload is not a list.
func (b Binder) bindChildren(c *Child, raw any, errs ValidationErrors) []map[string]any {
	list, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return []map[string]any{}
		}
		errs.Add(c.Name, fmt.Sprintf("The %s field must be a list.", c.Name))
		return nil
	}

	rows := make([]map[string]any, 0, len(list))
	for idx, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			errs.Add(fmt.Sprintf("%s.%d", c.Name, idx), "Each entry must be an object.")
			continue
		}
		row := make(map[string]any, len(c.Fields))
		for i := range c.Fields {
			f := &c.Fields[i]
			r, present := obj[f.Name]
			val, set, msg := b.bindField(f, r, present, ModeCreate)
			if msg != "" {
				errs.Add(fmt.Sprintf("%s.%d.%s", c.Name, idx, f.Name), msg)
				continue
			}
			if set {
				row[f.ColumnName()] = val
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// deriveSlugs fills empty slug fields from their source field.
func deriveSlugs(def *Definition, v *Values, errs ValidationErrors) {
	for i := range def.Fields {
		f := &def.Fields[i]
		if f.Type != TypeSlug || f.From == "" || v.Has(f.ColumnName()) {
			continue
		}
		if _, failed := errs[f.From]; failed {
			continue
		}
		src, _ := def.Field(f.From)
		raw, _ := v.Get(src.ColumnName())
		s, _ := raw.(string)
		if s == "" {
			errs.Add(f.Name, fmt.Sprintf("The %s field is required.", f.DisplayLabel()))
			continue
		}
		v.Set(f.ColumnName(), slug.Make(s))
		v.derived[f.ColumnName()] = true
	}
}

// -----------------------------------------------------------------------------
// Coercion
// -----------------------------------------------------------------------------

func coerce(f *Field, raw any) (any, string) {
	label := f.DisplayLabel()
	switch f.Type {
	case TypeInt:
		n, err := toInt32(raw)
		if err != nil {
			return nil, fmt.Sprintf("The %s must be an integer.", label)
		}
		return n, ""
	case TypeRef:
		n, err := toInt(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Sprintf("The selected %s is invalid.", label)
		}
		return n, ""
	case TypeDecimal:
		x, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Sprintf("The %s must be a number.", label)
		}
		return x, ""
	case TypeBool:
		on, err := toBool(raw)
		if err != nil {
			return nil, fmt.Sprintf("The %s field must be true or false.", label)
		}
		return on, ""
	case TypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Sprintf("The %s is not a valid date.", label)
		}
		d, err := parseDate(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Sprintf("The %s is not a valid date.", label)
		}
		return d, ""
	case TypeTimestamp:
		ts, err := toTimestamp(raw)
		if err != nil {
			return nil, fmt.Sprintf("The %s must be a valid date and time.", label)
		}
		return ts, ""
	default: // textual types
		switch x := raw.(type) {
		case string:
			if f.Type == TypePassword || f.Type == TypeImage {
				return x, ""
			}
			return strings.TrimSpace(x), ""
		case json.Number:
			return x.String(), ""
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), ""
		default:
			return nil, fmt.Sprintf("The %s must be a string.", label)
		}
	}
}

func toInt(raw any) (int64, error) {
	switch x := raw.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt(f)
	case float64:
		return floatToInt(x)
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, errors.New("not an integer")
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.New("not an integer")
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errors.New("integer out of range")
	}
	return int64(f), nil
}

// toInt32 is toInt limited to the range of an INTEGER column.
func toInt32(raw any) (int64, error) {
	n, err := toInt(raw)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errors.New("integer out of range")
	}
	return n, nil
}

func toFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, errors.New("not a number")
}

func toBool(raw any) (bool, error) {
	switch x := raw.(type) {
	case bool:
		return x, nil
	case json.Number:
		switch x.String() {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
	case float64:
		switch x {
		case 1:
			return true, nil
		case 0:
			return false, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "on", "yes":
			return true, nil
		case "false", "0", "off", "no":
			return false, nil
		}
	}
	return false, errors.New("not a boolean")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04", // <input type="datetime-local">
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toTimestamp(raw any) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, errors.New("not a timestamp")
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errors.New("not a timestamp")
}

func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func isBlank(raw any) bool {
	s, ok := raw.(string)
	return ok && strings.TrimSpace(s) == ""
}

// zeroOf returns the typed zero used to evaluate tags on missing input.
func zeroOf(f *Field) any {
	switch f.Type {
	case TypeInt, TypeRef:
		return int64(0)
	case TypeDecimal:
		return float64(0)
	case TypeBool:
		return false
	case TypeDate, TypeTimestamp:
		return time.Time{}
	default:
		return ""
	}
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

// checkValue runs the field's validator tag and renders the first failure.
func checkValue(f *Field, val any) string {
	if f.Validate == "" {
		return ""
	}
	err := validate.Var(val, f.Validate)
	if err == nil {
		return ""
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) || len(fes) == 0 {
		return fmt.Sprintf("The %s is invalid.", f.DisplayLabel())
	}
	return message(f.DisplayLabel(), fes[0])
}

func message(label string, fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", label)
	case "url", "http_url":
		return fmt.Sprintf("The %s must be a valid URL.", label)
	case "e164":
		return fmt.Sprintf("The %s must be a valid phone number.", label)
	case "max", "lte":
		if isString {
			return fmt.Sprintf("The %s may not be greater than %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", label, fe.Param())
	case "min", "gte":
		if isString {
			return fmt.Sprintf("The %s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	default:
		return fmt.Sprintf("The %s is invalid.", label)
	}
}

func imageMsg(f *Field, err error) string {
	var tooLarge *media.TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("The %s may not be greater than %d kilobytes.", f.DisplayLabel(), tooLarge.Max/1024)
	case errors.Is(err, media.ErrNotImage):
		return fmt.Sprintf("The %s must be an image.", f.DisplayLabel())
	default:
		return fmt.Sprintf("The %s must be a base64 encoded image.", f.DisplayLabel())
	}
}
