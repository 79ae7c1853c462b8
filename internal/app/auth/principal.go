package auth

import (
	"context"

	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID          int64
	EstablishmentID int64 // zero for SUPER_ADMIN
	Role            models.Role
	Email           string
}

type principalKey struct{}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the auth middleware
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// MustFromContext returns the principal or ErrUnauthenticated
func MustFromContext(ctx context.Context) (Principal, error) {
	p, ok := FromContext(ctx)
	if !ok || p.UserID <= 0 {
		return Principal{}, apperrors.ErrUnauthenticated
	}
	return p, nil
}

// IsSuperAdmin reports a cross-tenant caller
func (p Principal) IsSuperAdmin() bool {
	return p.Role == models.RoleSuperAdmin
}

// HasRole reports whether the caller holds one of roles
func (p Principal) HasRole(roles ...models.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
