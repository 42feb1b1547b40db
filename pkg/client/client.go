// pkg/client/client.go
//
// Go clients for the safari API.
//
// Context
//   Admin talks to /api/admin/* and the auth endpoints with a bearer token
//   taken from a TokenStore.  Public reads the marketing lists and never
//   fails loudly.  Both share the transport below: one *http.Client, JSON
//   bodies, and the server's envelopes decoded into Go errors.
//
// Error mapping
//   401  → *StatusError that matches ErrUnauthorized under errors.Is
//          (Admin also clears the token and calls OnUnauthorized)
//   422  → *ValidationError carrying every field message
//   else → *StatusError with the server's {message} or
//          "Request failed with status N"
//
// Notes
//   No retries.  Every call takes a context; the http.Client timeout is a
//   backstop for callers that pass context.Background().
//
//------------------------------------------------------------------------------

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when the caller's context does not.
const DefaultTimeout = 15 * time.Second

// ErrUnauthorized is returned for 401 responses.
var ErrUnauthorized = errors.New("client: unauthorized")

// Record is one entity row as the API returns it.
type Record map[string]any

// ID returns the numeric id or 0.
func (r Record) ID() int64 {
	switch v := r["id"].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// ValidationError is the 422 envelope.  Order lists the field keys as the
// server sent them, which is the order the form declares its fields.
type ValidationError struct {
	Message string              `json:"message"`
	Fields  map[string][]string `json:"errors"`
	Order   []string            `json:"-"`
}

// Error returns the first field message, the way a form shows one inline
// error.  Keys missing from Order are visited afterwards in name order.
func (e *ValidationError) Error() string {
	seen := make(map[string]bool, len(e.Order))
	names := make([]string, 0, len(e.Fields))
	for _, k := range e.Order {
		if _, ok := e.Fields[k]; ok && !seen[k] {
			seen[k] = true
			names = append(names, k)
		}
	}
	rest := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	for _, k := range names {
		if msgs := e.Fields[k]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return "The given data was invalid."
}

// errorKeys returns the keys of the envelope's `errors` object in
// document order.
func errorKeys(raw []byte) []string {
	var env struct {
		Errors json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(raw, &env) != nil || len(env.Errors) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(env.Errors))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		k, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
		keys = append(keys, k)
	}
	return keys
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// Unwrap lets errors.Is(err, ErrUnauthorized) match a 401.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Option tweaks a client at construction.
type Option func(*transport)

// WithHTTPClient swaps the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *transport) { t.http = hc }
}

type transport struct {
	base string
	http *http.Client
}

func newTransport(baseURL string, opts []Option) transport {
	t := transport{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(&t)
	}
	return t
}

// do sends one request.  out receives the decoded body of a 2xx answer and
// may be nil.
func (t transport) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		ve := &ValidationError{}
		if err := json.Unmarshal(raw, ve); err != nil {
			ve.Message = "The given data was invalid."
		}
		ve.Order = errorKeys(raw)
		return ve
	default:
		return statusError(resp.StatusCode, raw)
	}
}

func statusError(status int, raw []byte) *StatusError {
	var env struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Message != "" {
		return &StatusError{Status: status, Message: env.Message}
	}
	return &StatusError{Status: status, Message: fmt.Sprintf("Request failed with status %d", status)}
}
