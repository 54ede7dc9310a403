package auth

import (
	"context"

	"vacations-api/internal/domain"
)

// Principal is the identity resolved from a bearer token.
type Principal struct {
	UserID int64
	Role   domain.Role
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by the auth middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
