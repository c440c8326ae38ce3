// Package auth carries the resolved acting user through a request context.
//
// It sits below both middleware and handler so either side can read the
// user without an import cycle.
package auth

import (
	"context"

	"github.com/mtaani/soko/internal/domain"
)

// contextKey is unexported so no other package can collide with our keys.
type contextKey string

const userContextKey contextKey = "user"

// GetUser returns the user the identity middleware resolved for this
// request, or nil when the request is anonymous.
func GetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// SetUser returns a child context carrying the resolved user. Called by the
// identity middleware once the gateway header has been resolved.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
