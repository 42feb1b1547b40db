package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{resource.ValidationErrors{"label": {"The label field is required."}}, 422, MsgInvalid},
		{resource.ErrNoDatabase, 503, MsgNoDatabase},
		{ErrMalformed, 400, MsgMalformed},
		{errors.New("pq: connection refused"), 500, MsgServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		Error(rec, httptest.NewRequest(http.MethodGet, "/api/admin/about-stats", nil), c.err)

		assert.Equal(t, c.status, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, c.msg, body["message"])
		assert.NotContains(t, rec.Body.String(), "connection refused")
	}
}

func TestValidation_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Validation(rec, resource.ValidationErrors{"email": {"The email must be a valid email address."}})

	body := decodeBody(t, rec)
	errs := body["errors"].(map[string]any)
	assert.Equal(t, []any{"The email must be a valid email address."}, errs["email"])
}

func TestValidationFor_KeepsFieldOrder(t *testing.T) {
	def := &resource.Definition{Fields: []resource.Field{{Name: "value"}, {Name: "label"}}}
	errs := resource.ValidationErrors{
		"label": {"The label field is required."},
		"value": {"The value field is required."},
	}

	rec := httptest.NewRecorder()
	ValidationFor(rec, def, errs)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	raw := rec.Body.String()
	assert.Less(t, strings.Index(raw, `"value"`), strings.Index(raw, `"label"`), raw)
	body := decodeBody(t, rec)
	assert.Equal(t, MsgInvalid, body["message"])
	assert.Len(t, body["errors"], 2)
}

func TestErrorFor_FallsBackToError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/about-stats", nil)

	rec := httptest.NewRecorder()
	ErrorFor(rec, req, nil, resource.ValidationErrors{"label": {"The label field is required."}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	ErrorFor(rec, req, &resource.Definition{}, resource.ErrNoDatabase)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDecodeObject(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"display_order": 3, "label": "Years"}`))
	got, err := DecodeObject(httptest.NewRecorder(), req, 1024)
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), got["display_order"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2]`))
	_, err = DecodeObject(httptest.NewRecorder(), req, 1024)
	assert.ErrorIs(t, err, ErrMalformed)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	got, err = DecodeObject(httptest.NewRecorder(), req, 1024)
	require.NoError(t, err)
	assert.Empty(t, got)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"image":"`+strings.Repeat("A", 64)+`"}`))
	_, err = DecodeObject(httptest.NewRecorder(), req, 16)
	_, isValidation := resource.IsValidation(err)
	assert.True(t, isValidation)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerToken(req))

	req.Header.Set("Authorization", "bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(req))

	req.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", BearerToken(req))
}
