package session

import "context"

// Identity is the authenticated caller of a single request.
// It is created by the auth middleware and never shared between requests.
type Identity struct {
	UserID string
	Email  string
}

type contextKey struct {
	name string
}

var identityKey = &contextKey{"Identity"}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// UserID returns the authenticated user id or "" for anonymous callers.
func UserID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}
