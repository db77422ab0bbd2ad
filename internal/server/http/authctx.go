package httpserver

import (
	"context"

	"github.com/ivmalkov/deal-pipeline/internal/policy"
)

type ctxKey string

const principalKey ctxKey = "dp.principal"

// WithPrincipal stores the authenticated caller in the request context.
func WithPrincipal(ctx context.Context, p policy.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromCtx fetches the authenticated caller from the request context.
func PrincipalFromCtx(ctx context.Context) (policy.Principal, bool) {
	v := ctx.Value(principalKey)
	if v == nil {
		return policy.Principal{}, false
	}
	p, ok := v.(policy.Principal)
	return p, ok
}
