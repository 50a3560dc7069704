package auth

import (
	"context"
	"time"
)

// Principal represents the authenticated identity of a caller.
type Principal struct {
	// UserID is the stable, unique identifier for the user.
	UserID string

	IssuedAt time.Time
	Expires  time.Time
}

type principalKey struct{}

// ContextWithPrincipal stores the principal in the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal, or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}
