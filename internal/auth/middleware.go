package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// PrincipalResolver reloads the principal behind a verified token, so that
// deactivated or deleted accounts lose access before their token expires.
// Errors for missing or inactive accounts must wrap ErrUnauthorized; any
// other error is treated as a server failure.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID string) (*Principal, error)
}

type Authenticator struct {
	tokens   *Tokens
	resolver PrincipalResolver
}

// NewAuthenticator builds the bearer-token middleware. resolver may be nil,
// in which case token claims are trusted as-is.
func NewAuthenticator(tokens *Tokens, resolver PrincipalResolver) *Authenticator {
	return &Authenticator{tokens: tokens, resolver: resolver}
}

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		principal, err := a.tokens.Parse(raw)
		if err != nil {
			log.Warn().Err(err).Msg("auth: rejected token")
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if a.resolver != nil {
			principal, err = a.resolver.ResolvePrincipal(r.Context(), principal.UserID)
			if errors.Is(err, ErrUnauthorized) {
				log.Warn().Err(err).Msg("auth: principal could not be resolved")
				writeError(w, http.StatusUnauthorized, "User not found or inactive")
				return
			}
			if err != nil {
				log.Error().Err(err).Msg("auth: failed to resolve principal")
				writeError(w, http.StatusInternalServerError, "Failed to authenticate request")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireRole allows the request through only when the authenticated
// principal holds one of roles. It must run after Middleware.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !principal.HasRole(roles...) {
				log.Warn().
					Str("user_id", principal.UserID).
					Stringer("role", principal.Role).
					Msg("auth: role not permitted")
				writeError(w, http.StatusForbidden, "Forbidden resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
