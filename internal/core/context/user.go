// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"
)

// UserContext describes the authenticated actor of a request.
// The identity service owns users; here the actor is an opaque id plus its grants.
type UserContext struct {
	ActorID     int64
	Email       string
	Roles       []string
	Permissions []string
	IsAdmin     bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetActorID returns the acting user id or 0 when the request is anonymous.
func GetActorID(ctx context.Context) int64 {
	if u := GetUser(ctx); u != nil {
		return u.ActorID
	}
	return 0
}

// HasPermission reports whether the actor holds permission. Admins hold all.
func HasPermission(ctx context.Context, permission string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	return u.IsAdmin || slices.Contains(u.Permissions, permission)
}
