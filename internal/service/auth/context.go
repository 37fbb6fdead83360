package auth

import (
	"context"

	"github.com/zhouzirui/lingualink/backend/internal/model/user"
)

type userKey struct{}

// WithUser returns a copy of ctx carrying u as the current user.
func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the current user, if any.
func UserFromContext(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(userKey{}).(user.User)
	return u, ok
}
