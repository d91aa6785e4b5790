package middleware

import (
	"context"

	"github.com/baharkarakas/p2pgate/internal/models"
)

type principalKey struct{}
type merchantKey struct{}

// Principal is the authenticated operator or administrator.
type Principal struct {
	UserID string
	Role   string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func WithMerchant(ctx context.Context, m models.Merchant) context.Context {
	return context.WithValue(ctx, merchantKey{}, m)
}

func MerchantFrom(ctx context.Context) (models.Merchant, bool) {
	m, ok := ctx.Value(merchantKey{}).(models.Merchant)
	return m, ok
}
