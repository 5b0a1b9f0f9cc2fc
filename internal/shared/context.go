package shared

import (
	"context"

	"github.com/google/uuid"
)

type identityContextKey struct{}

// Identity describes the authenticated actor for the current request.
type Identity struct {
	UserID   uuid.UUID
	SchoolID uuid.UUID
	Email    string
}

// ContextWithIdentity stores the authenticated identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
