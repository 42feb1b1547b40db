package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/media"
)

// Result is a public list read.  Err is set when the request itself failed;
// Degraded mirrors the server's flag.
type Result struct {
	Items    []Record
	Degraded bool
	Err      error
}

// Home is the /api/site/home aggregate.
type Home struct {
	Sections map[string]Section `json:"sections"`
	Degraded bool               `json:"degraded"`
}

// Section is one block of the home page.
type Section struct {
	Items    []Record `json:"items"`
	Fallback bool     `json:"fallback"`
}

// Public reads the marketing content.  No auth header is sent.
type Public struct {
	t transport
}

// NewPublic returns a client for baseURL.
func NewPublic(baseURL string, opts ...Option) *Public {
	return &Public{t: newTransport(baseURL, opts)}
}

// Fetch returns the public rows of entity along with how the read went.
// Items is never nil.
func (p *Public) Fetch(ctx context.Context, entity string) Result {
	var env struct {
		Data     []Record `json:"data"`
		Degraded bool     `json:"degraded"`
	}
	if err := p.t.do(ctx, http.MethodGet, "/api/"+url.PathEscape(entity), "", nil, &env); err != nil {
		return Result{Items: []Record{}, Degraded: true, Err: err}
	}
	if env.Data == nil {
		env.Data = []Record{}
	}
	return Result{Items: env.Data, Degraded: env.Degraded}
}

// List is Fetch without the diagnostics: any failure is an empty slice.
func (p *Public) List(ctx context.Context, entity string) []Record {
	return p.Fetch(ctx, entity).Items
}

// Get returns one public row by id or slug, or nil when it is not there.
func (p *Public) Get(ctx context.Context, entity, key string) (Record, error) {
	var env struct {
		Data Record `json:"data"`
	}
	path := "/api/" + url.PathEscape(entity) + "/" + url.PathEscape(key)
	if err := p.t.do(ctx, http.MethodGet, path, "", nil, &env); err != nil {
		if se, ok := err.(*StatusError); ok && se.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return env.Data, nil
}

// Home returns the home page sections.
func (p *Public) Home(ctx context.Context) (*Home, error) {
	var h Home
	if err := p.t.do(ctx, http.MethodGet, "/api/site/home", "", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Submit posts a public form ("contact" or "bookings") and returns the
// server's thank-you message.
func (p *Public) Submit(ctx context.Context, form string, fields Record) (string, error) {
	var env struct {
		Message string `json:"message"`
	}
	if err := p.t.do(ctx, http.MethodPost, "/api/"+url.PathEscape(form), "", fields, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}

// ImageSrc turns a stored image value into something an <img src> or a
// download can use.  Data URLs and http(s) or root-relative URLs pass
// through; bare base64 is assumed to be JPEG.
func ImageSrc(v string) string {
	return media.ImageSrc(v)
}
