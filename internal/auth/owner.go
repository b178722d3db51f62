package auth

import (
	"context"

	"github.com/google/uuid"
)

type ownerCtxKey struct{}

// Owner is the authenticated user a request acts for.
type Owner struct {
	ID    uuid.UUID
	Name  string
	Email string
}

func ContextWithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ownerCtxKey{}, owner)
}

func OwnerFromContext(ctx context.Context) (Owner, bool) {
	owner, ok := ctx.Value(ownerCtxKey{}).(Owner)
	if !ok || owner.ID == uuid.Nil {
		return Owner{}, false
	}
	return owner, true
}
