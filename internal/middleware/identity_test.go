package middleware

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/auth"
	"github.com/mtaani/soko/internal/domain"
)

type stubResolver struct {
	users map[uuid.UUID]*domain.User
}

func (s *stubResolver) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIdentityFixture(users ...*domain.User) *IdentityMiddleware {
	resolver := &stubResolver{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		resolver.users[u.ID] = u
	}
	return NewIdentityMiddleware(resolver, discardLogger())
}

func TestWithUser_ResolvesHeader(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	mw := newIdentityFixture(user)

	var got *domain.User
	handler := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.GetUser(r.Context())
	}))

	req := httptest.NewRequest("GET", "/feed", nil)
	req.Header.Set(IdentityHeader, user.ID.String())
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.ID != user.ID {
		t.Errorf("user not resolved into context: %+v", got)
	}
}

func TestWithUser_ContinuesWithoutHeader(t *testing.T) {
	mw := newIdentityFixture()

	called := false
	handler := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if auth.GetUser(r.Context()) != nil {
			t.Error("no user should be in context")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/feed", nil))
	if !called {
		t.Error("handler should run for anonymous requests")
	}
}

func TestWithUser_UnknownAndMalformedIdentity(t *testing.T) {
	mw := newIdentityFixture()

	for _, raw := range []string{uuid.New().String(), "not-a-uuid"} {
		called := false
		handler := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			if auth.GetUser(r.Context()) != nil {
				t.Errorf("identity %q should not resolve to a user", raw)
			}
		}))

		req := httptest.NewRequest("GET", "/feed", nil)
		req.Header.Set(IdentityHeader, raw)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if !called {
			t.Errorf("request with identity %q should still pass through", raw)
		}
	}
}

func TestRequireUser(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	mw := newIdentityFixture(user)

	handler := Stack(mw.WithUser, mw.RequireUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Anonymous request is rejected.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/listings", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}

	// Resolved identity passes.
	req := httptest.NewRequest("POST", "/listings", nil)
	req.Header.Set(IdentityHeader, user.ID.String())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated: status = %d, want 200", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
	mw := newIdentityFixture(user, admin)

	handler := Stack(mw.WithUser, mw.RequireUser, mw.RequireAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	tests := []struct {
		name     string
		identity string
		want     int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"regular user", user.ID.String(), http.StatusForbidden},
		{"admin", admin.ID.String(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/moderation/counts", nil)
			if tt.identity != "" {
				req.Header.Set(IdentityHeader, tt.identity)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestStack_Order(t *testing.T) {
	var order []string
	mk := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Stack(mk("first"), mk("second"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"first", "second", "handler"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
