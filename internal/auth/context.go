// internal/auth/context.go
//
// Request-scoped identity.
//
// Usage
// -----
//     // The Require middleware attaches the caller after token checks.
//     ctx = auth.WithUser(ctx, user, claims.ID)
//
//     // Downstream code retrieves it.
//     u, ok := auth.UserFrom(ctx)
//     id, ok := auth.UserID(ctx)
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package auth

import "context"

// User is the authenticated admin as exposed to handlers and JSON.
type User struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Role  string `json:"role" db:"role"`
}

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

type identity struct {
	user      *User
	sessionID string
}

// WithUser returns a new context carrying u and the session id behind it.
func WithUser(ctx context.Context, u *User, sessionID string) context.Context {
	return context.WithValue(ctx, userKey{}, identity{user: u, sessionID: sessionID})
}

// UserFrom returns the user attached by WithUser.
func UserFrom(ctx context.Context) (*User, bool) {
	id, ok := ctx.Value(userKey{}).(identity)
	if !ok || id.user == nil {
		return nil, false
	}
	return id.user, true
}

// UserID extracts the user's id.  It returns (0, false) if no user is set.
func UserID(ctx context.Context) (int64, bool) {
	u, ok := UserFrom(ctx)
	if !ok {
		return 0, false
	}
	return u.ID, true
}

// SessionID returns the `jti` of the token that authenticated the request.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(identity)
	return id.sessionID
}
