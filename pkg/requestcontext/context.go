// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services consume them. Keeping the package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedLedgerTime)
//	ctx = requestcontext.WithActor(ctx, "GHOLDER")
package requestcontext

import (
	"context"
	"time"

	id "assetup/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Actor retrieves the authenticated principal from the context.
// Returns the zero value if the request is unauthenticated.
func Actor(ctx context.Context) id.Principal {
	if p, ok := ctx.Value(ContextKeyActor).(id.Principal); ok {
		return p
	}
	return ""
}

// WithActor injects the authenticated principal into the context.
func WithActor(ctx context.Context, p id.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyActor, p)
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

// Now retrieves the ledger time for the current call. Every check inside one
// operation sees the same instant, which keeps lock-expiry and lease-window
// decisions consistent within a call.
//
// Falls back to time.Now() for non-HTTP contexts (workers, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific ledger time into a context. Tests use this to
// drive lock expiry and lease windows deterministically.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
