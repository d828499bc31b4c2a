package services

import "context"

type contextKey int

const (
	sessionIDKey contextKey = iota
	componentKey
)

// WithSessionID tags the context with the watch-session identifier driving the
// current request chain.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the watch-session identifier, if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithComponent tags the context with the component issuing a request.
func WithComponent(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, componentKey, name)
}

// ComponentFromContext extracts the component name, if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(componentKey).(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
