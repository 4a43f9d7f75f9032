package interceptors

import (
	"context"

	principaldomain "factory-data-platform/backend/internal/principal/domain"
)

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// WithPrincipal returns a context carrying the authenticated principal.
// Handlers read it via GetPrincipal; nothing downstream re-parses the token.
func WithPrincipal(ctx context.Context, p *principaldomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the authenticated principal and true if set; otherwise nil, false.
func GetPrincipal(ctx context.Context) (*principaldomain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*principaldomain.Principal)
	return p, ok
}
