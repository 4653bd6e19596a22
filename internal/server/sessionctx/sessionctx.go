// Package sessionctx carries the identity resolved for an in-flight request.
package sessionctx

import (
	"context"

	"github.com/dmitrijs2005/vidhub/internal/server/models"
)

type userKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.PublicUser) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the session user, if any.
func UserFromContext(ctx context.Context) (*models.PublicUser, bool) {
	u, ok := ctx.Value(userKey{}).(*models.PublicUser)
	return u, ok && u != nil
}
