// internal/auth/service.go
//
// Login, session issue, and bearer authentication.
//
// Context
//   Service ties the three auth stores together: Users (credentials),
//   session.Store (revocable token rows), and Issuer (signatures).  HTTP
//   handlers in components/auth call Login / IssueSession / Logout; every
//   admin route goes through Require.
//
// Notes
//   Unknown email and wrong password return the same ErrLoginFailed after
//   the same bcrypt work, so the response does not reveal which one failed.
//
//------------------------------------------------------------------------------

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/httpx"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/session"
)

var (
	ErrLoginFailed     = errors.New("login failed")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Token is the login and register response body.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// ClientMeta is recorded on the session row.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Service authenticates admins.
type Service struct {
	Users    *Users
	Sessions *session.Store
	Issuer   *Issuer
}

// Enabled reports whether a database backs the service.  Without one
// every call returns resource.ErrNoDatabase.
func (s *Service) Enabled() bool {
	return s != nil && s.Users != nil && s.Users.db != nil
}

// Login checks credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string, meta ClientMeta) (*Token, error) {
	if !s.Enabled() {
		return nil, resource.ErrNoDatabase
	}
	acct, err := s.Users.byEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash := dummyHash
	if acct != nil && acct.PasswordHash.Valid {
		hash = acct.PasswordHash.String
	}
	ok := CheckPassword(hash, password)
	if acct == nil || !acct.PasswordHash.Valid || !ok {
		return nil, ErrLoginFailed
	}

	u := acct.User
	return s.IssueSession(ctx, &u, meta)
}

// IssueSession signs a token for u and records its session row.
func (s *Service) IssueSession(ctx context.Context, u *User, meta ClientMeta) (*Token, error) {
	tok, jti, exp, err := s.Issuer.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Create(ctx, session.Session{
		ID:        jti,
		UserID:    u.ID,
		ExpiresAt: exp,
		ClientIP:  meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		return nil, err
	}
	return &Token{Token: tok, ExpiresAt: exp, User: u}, nil
}

// Authenticate resolves a bearer token to its user and session id.
// ErrUnauthenticated covers every rejection; other errors are server-side.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*User, string, error) {
	if !s.Enabled() {
		return nil, "", resource.ErrNoDatabase
	}
	if bearer == "" {
		return nil, "", ErrUnauthenticated
	}
	claims, err := s.Issuer.Parse(bearer)
	if err != nil {
		return nil, "", ErrUnauthenticated
	}

	sess, err := s.Sessions.Active(ctx, claims.ID)
	if err != nil {
		return nil, "", err
	}
	uid, _ := claims.UserID()
	if sess == nil || sess.UserID != uid {
		return nil, "", ErrUnauthenticated
	}

	u, err := s.Users.ByID(ctx, uid)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", ErrUnauthenticated
	}
	return u, claims.ID, nil
}

// Logout revokes the session behind ctx.
func (s *Service) Logout(ctx context.Context) error {
	if !s.Enabled() {
		return resource.ErrNoDatabase
	}
	id := SessionID(ctx)
	if id == "" {
		return ErrUnauthenticated
	}
	return s.Sessions.Revoke(ctx, id)
}

// Require rejects requests without a live bearer token.  The role in the
// database, not the one in the token, is what downstream checks see.
func (s *Service) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, sid, err := s.Authenticate(r.Context(), httpx.BearerToken(r))
		switch {
		case errors.Is(err, ErrUnauthenticated):
			httpx.Message(w, http.StatusUnauthorized, httpx.MsgUnauthenticated)
			return
		case err != nil:
			httpx.Error(w, r, err)
			return
		}

		ctx := WithUser(r.Context(), u, sid)
		l := logger.FromContext(ctx).With("user_id", u.ID)
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx, l)))
	})
}
