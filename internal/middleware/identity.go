// Package middleware contains the HTTP middleware for the soko API.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed with Stack.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/auth"
	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/handler"
)

// IdentityHeader carries the acting user's ID, set by the gateway after it
// has authenticated the request. This service trusts the header; it never
// sees credentials.
const IdentityHeader = "X-User-ID"

// UserResolver loads the acting user for a resolved identity.
type UserResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// IdentityMiddleware resolves the acting user from the gateway identity
// header and places it in the request context.
type IdentityMiddleware struct {
	users  UserResolver
	logger *slog.Logger
}

// NewIdentityMiddleware creates a new IdentityMiddleware.
func NewIdentityMiddleware(users UserResolver, logger *slog.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{users: users, logger: logger}
}

// WithUser attempts to resolve the identity header and stores the user in
// the context. The request continues either way; use RequireUser on routes
// that need an authenticated caller.
func (m *IdentityMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(IdentityHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			m.logger.Warn("malformed identity header", "value", raw)
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetByID(r.Context(), id)
		if err != nil {
			// Unknown or stale identity. Continue unauthenticated rather
			// than failing public routes.
			m.logger.Warn("identity resolution failed", "user_id", id, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser rejects requests that did not resolve to a user. Use after
// WithUser.
func (m *IdentityMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose user does not hold the admin role.
// Use after RequireUser.
func (m *IdentityMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		if !user.IsAdmin() {
			handler.ForbiddenResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stack composes middlewares so the first argument is the outermost.
//
//	protected := middleware.Stack(idMw.WithUser, idMw.RequireUser)
//	mux.Handle("POST /listings", protected(createHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
