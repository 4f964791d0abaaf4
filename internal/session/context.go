package session

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
)

type ctxKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, ident *entity.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

// IdentityFrom returns the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (*entity.Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(*entity.Identity)
	return ident, ok && ident != nil
}
