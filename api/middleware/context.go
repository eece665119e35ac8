package middleware

import (
	"context"

	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
)

// CurrentUser returns the signed-in user for the request, or nil.
func CurrentUser(ctx context.Context) *models.User {
	return session.PrincipalFrom(ctx)
}

// WithPrincipal injects the signed-in user into the context.
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if user == nil {
		return ctx
	}
	return session.WithPrincipal(ctx, user)
}
