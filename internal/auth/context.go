package auth

import "context"

type contextKey string

const claimsKey contextKey = "ecotrack-auth-claims"

// WithClaims stores claims on the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// FromContext retrieves claims stored by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// UserID returns the subject on the context, or LocalUser.
func UserID(ctx context.Context) string {
	if c, ok := FromContext(ctx); ok && c.Subject != "" {
		return c.Subject
	}
	return LocalUser
}
