// internal/httpx/httpx.go
//
// JSON envelopes shared by every component.
//
// Shapes
//   200/201  {"data": …}                     Data
//   any      {"message": "…"}                Message
//   422      {"message": "…", "errors": {}}  Validation, ValidationFor
//
// Error maps the engine's error taxonomy onto those shapes so handlers end
// in a single `httpx.Error(w, r, err)` call.  Causes of 5xx answers are
// logged with the request logger and never written to the client.
//
//------------------------------------------------------------------------------

package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

// Fixed client-facing messages.
const (
	MsgInvalid         = "The given data was invalid."
	MsgUnauthenticated = "Unauthenticated."
	MsgForbidden       = "Forbidden."
	MsgNotFound        = "Not found."
	MsgTooMany         = "Too many requests."
	MsgNoDatabase      = "Database is not configured."
	MsgServerError     = "Server error."
	MsgMalformed       = "Malformed JSON body."
)

// ErrMalformed is returned by DecodeObject for bodies that are not a JSON
// object.
var ErrMalformed = errors.New("httpx: malformed JSON body")

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data writes {"data": v}.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, map[string]any{"data": v})
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Validation writes the 422 envelope.
func Validation(w http.ResponseWriter, errs resource.ValidationErrors) {
	JSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": MsgInvalid,
		"errors":  errs,
	})
}

// orderedErrors marshals as a JSON object whose keys keep the given order.
type orderedErrors struct {
	keys []string
	errs resource.ValidationErrors
}

func (o orderedErrors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.errs[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ValidationFor writes the 422 envelope with the `errors` keys in the
// order def declares its fields, so clients can show the first one.
func ValidationFor(w http.ResponseWriter, def *resource.Definition, errs resource.ValidationErrors) {
	JSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": MsgInvalid,
		"errors":  orderedErrors{keys: def.ErrorOrder(errs), errs: errs},
	})
}

// ErrorFor is Error with validation keys ordered by def.
func ErrorFor(w http.ResponseWriter, r *http.Request, def *resource.Definition, err error) {
	if ve, ok := resource.IsValidation(err); ok && def != nil {
		ValidationFor(w, def, ve)
		return
	}
	Error(w, r, err)
}

// Error answers err with the matching status.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := resource.IsValidation(err); ok {
		Validation(w, ve)
		return
	}
	switch {
	case errors.Is(err, ErrMalformed):
		Message(w, http.StatusBadRequest, MsgMalformed)
	case errors.Is(err, resource.ErrNoDatabase):
		Message(w, http.StatusServiceUnavailable, MsgNoDatabase)
	default:
		logger.FromContext(r.Context()).Errorw("request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		Message(w, http.StatusInternalServerError, MsgServerError)
	}
}

// DecodeObject reads a JSON object from r's body, capped at maxBytes.
// Numbers stay json.Number so integers survive untouched.
func DecodeObject(w http.ResponseWriter, r *http.Request, maxBytes int64) (map[string]any, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, resource.ValidationErrors{"body": {"The request body is too large."}}
		}
		return nil, ErrMalformed
	}
	if out == nil {
		return nil, ErrMalformed
	}
	return out, nil
}

// BearerToken returns the token from `Authorization: Bearer …`.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
