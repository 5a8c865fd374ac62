// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services consume them. Keeping this package
// free of net/http lets services avoid pulling in transport code.
//
// Usage in services (read values):
//
//	caller := requestcontext.CallerID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithCallerID(ctx, accountID)
package requestcontext

import (
	"context"
	"time"

	"bazaar/pkg/domain"
)

type (
	callerIDKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyCallerID    = callerIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// CallerID retrieves the authenticated caller from the context.
// Returns the zero AccountID if not set.
func CallerID(ctx context.Context) domain.AccountID {
	if id, ok := ctx.Value(ContextKeyCallerID).(domain.AccountID); ok {
		return id
	}
	return domain.AccountID{}
}

// WithCallerID injects an authenticated caller into the context.
func WithCallerID(ctx context.Context, id domain.AccountID) context.Context {
	return context.WithValue(ctx, ContextKeyCallerID, id)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests, CLI).
// Profiles stamp created_at from this clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
