package resource

import (
	"encoding/base64"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func fakeHash(p string) (string, error) { return "hashed:" + p, nil }

func bindErrs(t *testing.T, err error) ValidationErrors {
	t.Helper()
	ve, ok := IsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	return ve
}

func TestBind_CreateRequiresFields(t *testing.T) {
	def := mustParse(t, aboutStatsYAML)

	_, err := Binder{}.Bind(def, map[string]any{"value": "18+"}, ModeCreate)
	ve := bindErrs(t, err)
	want := ValidationErrors{"label": {"The label field is required."}}
	if !reflect.DeepEqual(ve, want) {
		t.Fatalf("errors = %#v", ve)
	}
}

func TestBind_CreateLeavesCommonDefaultsToStore(t *testing.T) {
	def := mustParse(t, aboutStatsYAML)

	v, err := Binder{}.Bind(def, map[string]any{"value": " 18+ ", "label": "Years", "colour": "ignored"}, ModeCreate)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if got := v.Columns(); !reflect.DeepEqual(got, []string{"value", "label"}) {
		t.Fatalf("columns = %v", got)
	}
	if val, _ := v.Get("value"); val != "18+" {
		t.Fatalf("value not trimmed: %q", val)
	}
}

func TestBind_UpdateIsPartial(t *testing.T) {
	def := mustParse(t, itinerariesYAML)

	v, err := Binder{}.Bind(def, map[string]any{
		"price_from":    "1250.50",
		"is_active":     false,
		"display_order": json.Number("3"),
	}, ModeUpdate)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if got := v.Columns(); !reflect.DeepEqual(got, []string{"price_from", "display_order", "is_active"}) {
		t.Fatalf("columns = %v", got)
	}
	if p, _ := v.Get("price_from"); p != 1250.5 {
		t.Fatalf("price = %#v", p)
	}
	if o, _ := v.Get("display_order"); o != int64(3) {
		t.Fatalf("display_order = %#v", o)
	}
	if a, _ := v.Get("is_active"); a != false {
		t.Fatalf("is_active = %#v", a)
	}
	if v.Has("slug") {
		t.Fatal("update must not derive a slug")
	}
}

func TestBind_UpdateBlankSlugKeepsExisting(t *testing.T) {
	def := mustParse(t, itinerariesYAML)
	v, err := Binder{}.Bind(def, map[string]any{"slug": "  "}, ModeUpdate)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if v.Len() != 0 {
		t.Fatalf("columns = %v", v.Columns())
	}
}

func TestBind_DerivesSlugAndBindsChildren(t *testing.T) {
	def := mustParse(t, itinerariesYAML)

	v, err := Binder{}.Bind(def, map[string]any{
		"title":         "Serengeti Great Migration",
		"duration_days": json.Number("7"),
		"days": []any{
			map[string]any{"day_number": json.Number("1"), "title": "Arrive Arusha"},
			map[string]any{"day_number": 2.0, "title": "Ngorongoro Crater"},
		},
	}, ModeCreate)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if s, _ := v.Get("slug"); s != "serengeti-great-migration" || !v.derived["slug"] {
		t.Fatalf("slug = %q derived=%v", s, v.derived["slug"])
	}
	if d, _ := v.Get("duration_days"); d != int64(7) {
		t.Fatalf("duration = %#v", d)
	}
	days, ok := v.Children("days")
	if !ok || len(days) != 2 {
		t.Fatalf("days = %#v", days)
	}
	if days[1]["day_number"] != int64(2) || days[1]["title"] != "Ngorongoro Crater" {
		t.Fatalf("day 2 = %#v", days[1])
	}
}

func TestBind_ExplicitSlugIsNormalized(t *testing.T) {
	def := mustParse(t, itinerariesYAML)
	v, err := Binder{}.Bind(def, map[string]any{"title": "Kilimanjaro", "slug": "Kili Climb!"}, ModeCreate)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if s, _ := v.Get("slug"); s != "kili-climb" || v.derived["slug"] {
		t.Fatalf("slug = %q derived=%v", s, v.derived["slug"])
	}
}

func TestBind_ChildErrorsAreIndexed(t *testing.T) {
	def := mustParse(t, itinerariesYAML)

	_, err := Binder{}.Bind(def, map[string]any{
		"title": "Tarangire",
		"days": []any{
			map[string]any{"day_number": 1, "title": "Arrive"},
			map[string]any{"day_number": json.Number("-1")},
			"nonsense",
		},
	}, ModeCreate)
	ve := bindErrs(t, err)
	want := ValidationErrors{
		"days.1.day_number": {"The day number must be at least 1."},
		"days.1.title":      {"The title field is required."},
		"days.2":            {"Each entry must be an object."},
	}
	if !reflect.DeepEqual(ve, want) {
		t.Fatalf("errors = %#v", ve)
	}
}

func TestBind_TypeErrors(t *testing.T) {
	def := mustParse(t, itinerariesYAML)

	_, err := Binder{}.Bind(def, map[string]any{
		"title":         strings.Repeat("x", 201),
		"duration_days": "a week",
		"price_from":    true,
		"days":          "all of them",
	}, ModeCreate)
	ve := bindErrs(t, err)
	want := ValidationErrors{
		"title":         {"The title may not be greater than 200 characters."},
		"duration_days": {"The duration must be an integer."},
		"price_from":    {"The price must be a number."},
		"days":          {"The days field must be a list."},
	}
	if !reflect.DeepEqual(ve, want) {
		t.Fatalf("errors = %#v", ve)
	}
}

func TestBind_SubmitIgnoresPrivilegedFields(t *testing.T) {
	def := mustParse(t, bookingsYAML)

	v, err := Binder{}.Bind(def, map[string]any{
		"full_name": "Amina Mushi",
		"email":     "AMINA@Example.com",
		"status":    "confirmed",
		"client_ip": "203.0.113.9",
	}, ModeSubmit)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if s, _ := v.Get("status"); s != "pending" {
		t.Fatalf("status = %#v", s)
	}
	if e, _ := v.Get("email"); e != "amina@example.com" {
		t.Fatalf("email = %#v", e)
	}
	if v.Has("client_ip") || v.Has("tour_package_id") {
		t.Fatalf("columns = %v", v.Columns())
	}
}

func TestBind_EmailAndEnumMessages(t *testing.T) {
	def := mustParse(t, bookingsYAML)

	_, err := Binder{}.Bind(def, map[string]any{
		"full_name":       "Amina",
		"email":           "not-an-email",
		"status":          "lost",
		"tour_package_id": "abc",
	}, ModeCreate)
	ve := bindErrs(t, err)
	want := ValidationErrors{
		"email":           {"The email must be a valid email address."},
		"status":          {"The selected status is invalid."},
		"tour_package_id": {"The selected tour package is invalid."},
	}
	if !reflect.DeepEqual(ve, want) {
		t.Fatalf("errors = %#v", ve)
	}
}

func TestBind_Passwords(t *testing.T) {
	def := mustParse(t, usersYAML)
	b := Binder{HashPassword: fakeHash}

	v, err := b.Bind(def, map[string]any{
		"name": "Neema", "email": "neema@example.com", "password": "kilimanjaro",
	}, ModeCreate)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if h, _ := v.Get("password_hash"); h != "hashed:kilimanjaro" {
		t.Fatalf("password_hash = %#v", h)
	}
	if nb, _ := v.Get("notify_bookings"); nb != false {
		t.Fatalf("bool default = %#v", nb)
	}

	v, err = b.Bind(def, map[string]any{"password": ""}, ModeUpdate)
	if err != nil {
		t.Fatalf("Bind update: %v", err)
	}
	if v.Has("password_hash") {
		t.Fatal("blank password must leave the hash untouched")
	}

	_, err = b.Bind(def, map[string]any{"password": "short"}, ModeUpdate)
	ve := bindErrs(t, err)
	if got := ve["password"]; len(got) != 1 || got[0] != "The password must be at least 8 characters." {
		t.Fatalf("password errors = %v", got)
	}
}

func TestBind_NullBoolIsRejected(t *testing.T) {
	def := mustParse(t, usersYAML)
	_, err := Binder{HashPassword: fakeHash}.Bind(def, map[string]any{"notify_bookings": nil}, ModeUpdate)
	ve := bindErrs(t, err)
	if got := ve["notify_bookings"]; len(got) != 1 || got[0] != "The notify bookings field must be true or false." {
		t.Fatalf("errors = %v", got)
	}
}

func TestBind_Images(t *testing.T) {
	def := mustParse(t, `
name: hero-slides
table: hero_slides
fields:
  - name: title
    type: text
  - name: image_base64
    label: image
    type: image
`)
	b := Binder{MaxImageBytes: 16}
	png := []byte("\x89PNG\r\n\x1a\n0000000000000000000000")

	_, err := b.Bind(def, map[string]any{"image_base64": "!!!"}, ModeUpdate)
	if got := bindErrs(t, err)["image_base64"]; got[0] != "The image must be a base64 encoded image." {
		t.Fatalf("bad base64: %v", got)
	}

	big := base64.StdEncoding.EncodeToString(png)
	_, err = b.Bind(def, map[string]any{"image_base64": big}, ModeUpdate)
	if got := bindErrs(t, err)["image_base64"]; !strings.HasPrefix(got[0], "The image may not be greater than") {
		t.Fatalf("too large: %v", got)
	}

	v, err := Binder{}.Bind(def, map[string]any{"image_base64": nil}, ModeUpdate)
	if err != nil {
		t.Fatalf("null image: %v", err)
	}
	if img, ok := v.Get("image_base64"); !ok || img != nil {
		t.Fatalf("null image should clear the column, got %#v", img)
	}
}

func TestBind_PublishedToggle(t *testing.T) {
	def := mustParse(t, packagesYAML)

	v, err := Binder{}.Bind(def, map[string]any{"published_at": nil}, ModeUpdate)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if p, ok := v.Get("published_at"); !ok || p != nil {
		t.Fatalf("published_at = %#v", p)
	}

	_, err = Binder{}.Bind(def, map[string]any{"published_at": "next tuesday"}, ModeUpdate)
	bindErrs(t, err)

	v, err = Binder{}.Bind(def, map[string]any{"published_at": "2025-06-01T08:00"}, ModeUpdate)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if !v.Has("published_at") {
		t.Fatal("timestamp not bound")
	}
}

func TestBind_IntegersOutsideColumnRange(t *testing.T) {
	stats := mustParse(t, aboutStatsYAML)
	for _, order := range []any{float64(3000000000), json.Number("1e20"), "-2147483649"} {
		_, err := Binder{}.Bind(stats, map[string]any{
			"value": "18+", "label": "Years", "display_order": order,
		}, ModeCreate)
		ve := bindErrs(t, err)
		if got := ve["display_order"]; len(got) != 1 || got[0] != "The display order must be an integer." {
			t.Fatalf("display_order %v: errors = %#v", order, ve)
		}
	}

	trips := mustParse(t, itinerariesYAML)
	_, err := Binder{}.Bind(trips, map[string]any{
		"title":         "Selous",
		"duration_days": json.Number("1e20"),
		"days": []any{
			map[string]any{"day_number": 61, "title": "Too far"},
		},
	}, ModeCreate)
	ve := bindErrs(t, err)
	want := ValidationErrors{
		"duration_days":     {"The duration must be an integer."},
		"days.0.day_number": {"The day number may not be greater than 60."},
	}
	if !reflect.DeepEqual(ve, want) {
		t.Fatalf("errors = %#v", ve)
	}

	bookings := mustParse(t, bookingsYAML)
	_, err = Binder{}.Bind(bookings, map[string]any{"tour_package_id": 1e20}, ModeUpdate)
	ve = bindErrs(t, err)
	if got := ve["tour_package_id"]; len(got) != 1 || got[0] != "The selected tour package is invalid." {
		t.Fatalf("errors = %#v", ve)
	}
}
