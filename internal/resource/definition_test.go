package resource

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestParse_AppliesDefaults(t *testing.T) {
	d := mustParse(t, bookingsYAML)
	if d.Visibility != VisibilityNone {
		t.Fatalf("visibility = %q, want none", d.Visibility)
	}
	if d.SlugField() != nil {
		t.Fatalf("bookings should have no slug field")
	}

	u := mustParse(t, usersYAML)
	pw, ok := u.Field("password")
	if !ok || pw.ColumnName() != "password_hash" {
		t.Fatalf("password column = %q", pw.ColumnName())
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key": `
name: x
table: x
colour: red
fields: [{name: a, type: text}]`,
		"bad table": `
name: x
table: "x; DROP TABLE users"
fields: [{name: a, type: text}]`,
		"public without gate": `
name: x
table: x
public: true
fields: [{name: a, type: text}]`,
		"reserved field": `
name: x
table: x
fields: [{name: deleted_at, type: timestamp}]`,
		"unknown type": `
name: x
table: x
fields: [{name: a, type: blob}]`,
		"enum without options": `
name: x
table: x
fields: [{name: a, type: enum}]`,
		"bad validate tag": `
name: x
table: x
fields: [{name: a, type: text, validate: "required,nosuchrule"}]`,
		"slug source missing": `
name: x
table: x
fields: [{name: s, type: slug, from: title}]`,
		"ref without target": `
name: x
table: x
fields: [{name: a_id, type: ref}]`,
		"bad order": `
name: x
table: x
order: "id; DELETE"
fields: [{name: a, type: text}]`,
		"slug in child": `
name: x
table: x
fields: [{name: a, type: text}]
children:
  - name: parts
    table: x_parts
    foreign_key: x_id
    fields: [{name: s, type: slug}]`,
	}
	for name, src := range cases {
		if _, err := Parse([]byte(src), name); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	a := mustParse(t, aboutStatsYAML)
	b := mustParse(t, aboutStatsYAML)
	if _, err := NewRegistry(a, b); err == nil {
		t.Fatal("duplicate names accepted")
	}

	c := mustParse(t, strings.Replace(aboutStatsYAML, "name: about-stats", "name: stats", 1))
	if _, err := NewRegistry(a, c); err == nil {
		t.Fatal("shared table accepted")
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"schemas/bookings.yaml":    {Data: []byte(bookingsYAML)},
		"schemas/about-stats.yaml": {Data: []byte(aboutStatsYAML)},
		"schemas/README.md":        {Data: []byte("ignored")},
	}
	reg, err := LoadFS(fsys, "schemas/*.yaml")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}

	all := reg.All()
	if len(all) != 2 || all[0].Name != "about-stats" || all[1].Name != "bookings" {
		t.Fatalf("load order = %v", names(all))
	}
	if pub := reg.Public(); len(pub) != 1 || pub[0].Name != "about-stats" {
		t.Fatalf("public = %v", names(pub))
	}
	if _, ok := reg.Lookup("lodges"); ok {
		t.Fatal("Lookup found an undeclared resource")
	}
	if len(reg.Migrations()) == 0 {
		t.Fatal("no migrations")
	}

	if _, err := LoadFS(fsys, "nothing/*.yaml"); err == nil {
		t.Fatal("empty glob accepted")
	}
}

func names(defs []*Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}
