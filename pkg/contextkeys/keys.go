// Package contextkeys provides centralized context key definitions so
// key usage stays discoverable and collision-free across packages.
package contextkeys

import (
	"context"

	"github.com/modboard/modboard/pkg/auth"
)

// Key is the type for context keys to prevent collisions.
type Key string

const (
	// SessionKey contains *auth.Session, set by the session middleware.
	SessionKey Key = "session"

	// RequestIDKey contains the request id string, set by the logging
	// middleware.
	RequestIDKey Key = "request_id"
)

// WithSession attaches an authenticated session to the context.
func WithSession(ctx context.Context, sess *auth.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// SessionFrom extracts the session from the context, nil when the
// request is unauthenticated.
func SessionFrom(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(SessionKey).(*auth.Session)
	return sess
}

// WithRequestID attaches a request id to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFrom extracts the request id, empty if unset.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
