package actorctx

import (
	"context"

	"github.com/geocoder89/mediahub/internal/domain/user"
)

type actorKey struct{}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, actorKey{}, u)
}

func UserFrom(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(actorKey{}).(user.User)

	return u, ok && u.ID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	u, ok := UserFrom(ctx)
	return u.ID, ok
}

type requestIDKey struct{}

// WithRequestID attaches the request id so logs written deeper in the call
// chain can carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
