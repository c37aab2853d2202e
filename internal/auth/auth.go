// Package auth carries the authenticated principal through the request
// context. Session mechanics (login, cookies, role storage) live in the
// fronting proxy; this package only consumes the identity it forwards, so no
// handler ever reads ambient global state.
package auth

import (
	"context"
	"net/http"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Headers set by the authenticating front end.
const (
	UserHeader = "X-Auth-User"
	RoleHeader = "X-Auth-Role"
)

type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) Admin() bool { return p.Role == RoleAdmin }

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Middleware rejects requests without a forwarded identity and stores the
// principal on the request context for handlers downstream.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserHeader)
		if userID == "" {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		role := Role(r.Header.Get(RoleHeader))
		if role != RoleAdmin && role != RoleStaff {
			role = RoleStaff
		}
		p := Principal{UserID: userID, Role: role}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
