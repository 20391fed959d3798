package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const ownerKey ctxKey = iota

func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerID returns the authenticated owner, or uuid.Nil outside an
// authenticated request.
func OwnerID(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(ownerKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}
