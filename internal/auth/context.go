// Package auth carries the authenticated organizer through a request.
package auth

import "context"

type contextKey struct{}

// Organizer identifies the organizer behind a request.
type Organizer struct {
	ID       int64
	Username string
}

func WithOrganizer(ctx context.Context, o Organizer) context.Context {
	return context.WithValue(ctx, contextKey{}, o)
}

func FromContext(ctx context.Context) (Organizer, bool) {
	o, ok := ctx.Value(contextKey{}).(Organizer)
	return o, ok
}

// IsOrganizer reports whether the request carried a valid organizer token.
func IsOrganizer(ctx context.Context) bool {
	_, ok := FromContext(ctx)
	return ok
}

// Username returns the organizer's username, or "" for anonymous requests.
func Username(ctx context.Context) string {
	o, _ := FromContext(ctx)
	return o.Username
}
