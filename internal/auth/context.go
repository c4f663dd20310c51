package auth

import (
	"context"

	"github.com/straye-as/fms-api/internal/domain"
)

// Roles carried in tokens. They match domain.User.Role.
const (
	RoleAdmin      = "ADMIN"
	RoleOperator   = "OPERATOR"
	RoleAccounting = "ACCOUNTING"
	RoleViewer     = "VIEWER"
)

// Authentication methods
const (
	AuthTypeJWT    = "jwt"
	AuthTypeAPIKey = "api_key"
)

// Principal is the authenticated caller of a request
type Principal struct {
	Username string
	Name     string
	Role     string
	AuthType string
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores p on ctx and sets the audit actor to its username
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return domain.WithActor(ctx, p.Username)
}

// FromContext extracts the principal from the context
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// HasAnyRole reports whether the principal holds one of roles. ADMIN holds every role.
func (p *Principal) HasAnyRole(roles ...string) bool {
	if p.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// CanWrite reports whether the principal may change operational data
func (p *Principal) CanWrite() bool {
	return p.HasAnyRole(RoleOperator, RoleAccounting)
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleAccounting, RoleViewer:
		return true
	}
	return false
}
