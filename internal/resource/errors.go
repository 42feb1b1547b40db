package resource

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrNoDatabase is returned by every Store method when no DSN was
// configured.  Public readers turn it into a degraded Result.
var ErrNoDatabase = errors.New("resource: no database configured")

// ValidationErrors maps an input key to its messages, in the shape the
// API returns under `errors`.  Child keys look like `days.0.title`.
type ValidationErrors map[string][]string

// Add appends msg under key.
func (v ValidationErrors) Add(key, msg string) {
	v[key] = append(v[key], msg)
}

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries ValidationErrors and returns them.
func IsValidation(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ErrorOrder returns the keys of v in the order a form for d shows them:
// top-level fields as declared, then child rows by index and child field,
// then anything else (display_order, is_active, published_at) by name.
func (d *Definition) ErrorOrder(v ValidationErrors) []string {
	type rank struct {
		group, child, row, field int
		key                      string
	}
	fieldAt := func(fields []Field, name string) int {
		for i := range fields {
			if fields[i].Name == name {
				return i
			}
		}
		return -1
	}

	ranks := make([]rank, 0, len(v))
	for key := range v {
		r := rank{group: 2, key: key}
		parts := strings.SplitN(key, ".", 3)
		if i := fieldAt(d.Fields, parts[0]); i >= 0 && len(parts) == 1 {
			r = rank{group: 0, field: i, key: key}
		}
		for ci := range d.Children {
			c := &d.Children[ci]
			if c.Name != parts[0] {
				continue
			}
			r = rank{group: 1, child: ci, row: -1, field: -1, key: key}
			if len(parts) > 1 {
				if n, err := strconv.Atoi(parts[1]); err == nil {
					r.row = n
				}
			}
			if len(parts) > 2 {
				r.field = fieldAt(c.Fields, parts[2])
			}
		}
		ranks = append(ranks, r)
	}

	sort.Slice(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.group != b.group {
			return a.group < b.group
		}
		if a.child != b.child {
			return a.child < b.child
		}
		if a.row != b.row {
			return a.row < b.row
		}
		if a.field != b.field {
			return a.field < b.field
		}
		return a.key < b.key
	})

	keys := make([]string, len(ranks))
	for i, r := range ranks {
		keys[i] = r.key
	}
	return keys
}
