package auth

import (
	"context"
	"strings"
)

type Role string

const (
	RoleCustomer     Role = "customer"
	RoleAdmin        Role = "admin"
	RoleBrandPartner Role = "brand-partner"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleBrandPartner:
		return true
	default:
		return false
	}
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
}

// HasRole reports whether the principal holds any of the given roles.
func (p *Principal) HasRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Owns reports whether a record stamped with userID/email belongs to the principal.
// Email matching is what lets a registered user see orders placed before sign-up.
func (p *Principal) Owns(userID, email string) bool {
	if p == nil {
		return false
	}
	if p.UserID != "" && userID != "" && p.UserID == userID {
		return true
	}
	return p.Email != "" && strings.EqualFold(p.Email, email)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
