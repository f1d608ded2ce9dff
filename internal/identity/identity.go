// Package identity carries the authenticated reader through request contexts.
package identity

import (
	"context"
	"net"
	"net/http"
)

// User is the normalized identity produced by bearer-token authentication.
type User struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	OrgID     string `json:"orgId,omitempty"`
	OrgRole   string `json:"orgRole,omitempty"`
}

type contextKey int

const userKey contextKey = iota

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// FromContext returns the authenticated user, or nil.
func FromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(userKey).(*User); ok {
		return u
	}
	return nil
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if u := FromContext(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// SessionIDFromContext extracts the identity provider session ID.
func SessionIDFromContext(ctx context.Context) string {
	if u := FromContext(ctx); u != nil {
		return u.SessionID
	}
	return ""
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
