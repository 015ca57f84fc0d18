package auth_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
)

type resolverFunc func(ctx context.Context, userID string) (*auth.Principal, error)

func (f resolverFunc) ResolvePrincipal(ctx context.Context, userID string) (*auth.Principal, error) {
	return f(ctx, userID)
}

func newTestRouter(a *auth.Authenticator) *chi.Mux {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(a.Middleware)
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(p.Email))
		})
		r.With(auth.RequireRole(auth.RoleAdmin)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func TestAuthenticator_Middleware(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	customerToken, err := tokens.Issue(auth.Principal{UserID: "u-1", Email: "c@example.com", Role: auth.RoleCustomer})
	require.NoError(t, err)
	adminToken, err := tokens.Issue(auth.Principal{UserID: "u-2", Email: "a@example.com", Role: auth.RoleAdmin})
	require.NoError(t, err)

	router := newTestRouter(auth.NewAuthenticator(tokens, nil))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "no_token", path: "/me", wantStatus: http.StatusUnauthorized},
		{name: "malformed_header", path: "/me", header: "Token abc", wantStatus: http.StatusUnauthorized},
		{name: "bad_token", path: "/me", header: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{name: "customer_me", path: "/me", header: "Bearer " + customerToken, wantStatus: http.StatusOK, wantBody: "c@example.com"},
		{name: "customer_admin_route", path: "/admin", header: "Bearer " + customerToken, wantStatus: http.StatusForbidden},
		{name: "admin_route", path: "/admin", header: "bearer " + adminToken, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestAuthenticator_ResolverRejectsInactiveUser(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	raw, err := tokens.Issue(auth.Principal{UserID: "u-1", Email: "c@example.com", Role: auth.RoleCustomer})
	require.NoError(t, err)

	resolver := resolverFunc(func(ctx context.Context, userID string) (*auth.Principal, error) {
		return nil, fmt.Errorf("%w: account is deactivated", auth.ErrUnauthorized)
	})
	router := newTestRouter(auth.NewAuthenticator(tokens, resolver))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticator_ResolverStorageFailure(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	raw, err := tokens.Issue(auth.Principal{UserID: "u-1", Email: "c@example.com", Role: auth.RoleCustomer})
	require.NoError(t, err)

	resolver := resolverFunc(func(ctx context.Context, userID string) (*auth.Principal, error) {
		return nil, errors.New("connection refused")
	})
	router := newTestRouter(auth.NewAuthenticator(tokens, resolver))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to authenticate request"}`, rr.Body.String())
}

func TestAuthenticator_ResolverRefreshesRole(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	raw, err := tokens.Issue(auth.Principal{UserID: "u-1", Email: "c@example.com", Role: auth.RoleCustomer})
	require.NoError(t, err)

	resolver := resolverFunc(func(ctx context.Context, userID string) (*auth.Principal, error) {
		return &auth.Principal{UserID: userID, Email: "c@example.com", Role: auth.RoleAdmin}, nil
	})
	router := newTestRouter(auth.NewAuthenticator(tokens, resolver))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
}
