package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// User is the signed-in admin.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is the login and register answer.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Admin calls the back-office API.
type Admin struct {
	t      transport
	tokens TokenStore

	// OnUnauthorized runs after a 401 has cleared the stored token.
	OnUnauthorized func()
}

// NewAdmin returns a client for baseURL that reads its token from tokens.
func NewAdmin(baseURL string, tokens TokenStore, opts ...Option) *Admin {
	if tokens == nil {
		tokens = &MemoryStore{}
	}
	return &Admin{t: newTransport(baseURL, opts), tokens: tokens}
}

// Login exchanges credentials for a token and stores it.  A rejection
// returns the server's message ("Login failed.") and does not fire
// OnUnauthorized.
func (a *Admin) Login(ctx context.Context, email, password string) (*Session, error) {
	return a.open(ctx, "/api/login", map[string]string{"email": email, "password": password})
}

// Register creates an admin account and signs it in.
func (a *Admin) Register(ctx context.Context, name, email, password string) (*Session, error) {
	return a.open(ctx, "/api/register", map[string]string{
		"name": name, "email": email, "password": password,
	})
}

func (a *Admin) open(ctx context.Context, path string, body any) (*Session, error) {
	var s Session
	if err := a.t.do(ctx, http.MethodPost, path, "", body, &s); err != nil {
		return nil, err
	}
	if err := a.tokens.SetToken(s.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &s, nil
}

// Logout revokes the session server-side and forgets the token.
func (a *Admin) Logout(ctx context.Context) error {
	err := a.call(ctx, http.MethodPost, "/api/logout", nil, nil)
	if cerr := a.tokens.Clear(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Me returns the signed-in user.
func (a *Admin) Me(ctx context.Context) (*User, error) {
	var env struct {
		Data *User `json:"data"`
	}
	if err := a.call(ctx, http.MethodGet, "/api/me", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// List returns every live row of entity.
func (a *Admin) List(ctx context.Context, entity string) ([]Record, error) {
	var env struct {
		Data []Record `json:"data"`
	}
	if err := a.call(ctx, http.MethodGet, entityPath(entity, 0), nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		env.Data = []Record{}
	}
	return env.Data, nil
}

// Get returns one row.
func (a *Admin) Get(ctx context.Context, entity string, id int64) (Record, error) {
	return a.record(ctx, http.MethodGet, entityPath(entity, id), nil)
}

// Create inserts a row and returns it as stored.
func (a *Admin) Create(ctx context.Context, entity string, fields Record) (Record, error) {
	return a.record(ctx, http.MethodPost, entityPath(entity, 0), fields)
}

// Update applies fields to row id and returns it as stored.
func (a *Admin) Update(ctx context.Context, entity string, id int64, fields Record) (Record, error) {
	return a.record(ctx, http.MethodPut, entityPath(entity, id), fields)
}

// Delete soft-deletes row id and returns the server's confirmation.
func (a *Admin) Delete(ctx context.Context, entity string, id int64) (string, error) {
	var env struct {
		Message string `json:"message"`
	}
	if err := a.call(ctx, http.MethodDelete, entityPath(entity, id), nil, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}

func (a *Admin) record(ctx context.Context, method, path string, in any) (Record, error) {
	var env struct {
		Data Record `json:"data"`
	}
	if err := a.call(ctx, method, path, in, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// call is do plus the bearer token and the 401 hook.
func (a *Admin) call(ctx context.Context, method, path string, in, out any) error {
	tok, err := a.tokens.Token()
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	err = a.t.do(ctx, method, path, tok, in, out)
	if errors.Is(err, ErrUnauthorized) {
		_ = a.tokens.Clear()
		if a.OnUnauthorized != nil {
			a.OnUnauthorized()
		}
		return ErrUnauthorized
	}
	return err
}

func entityPath(entity string, id int64) string {
	p := "/api/admin/" + url.PathEscape(entity)
	if id > 0 {
		p += "/" + strconv.FormatInt(id, 10)
	}
	return p
}
