// Package auth provides the caller-authentication capability the ledger
// consumes. Every mutating operation that names an acting party asserts,
// through a Verifier, that the current request is authorized as that
// principal before touching state.
package auth

import (
	"context"

	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// Verifier asserts that the current request is authorized as a principal.
// Swappable between the production request-context implementation and a
// permissive test stub.
type Verifier interface {
	RequireActor(ctx context.Context, principal id.Principal) error
}

// ContextVerifier authorizes a principal iff it matches the authenticated
// actor the auth middleware stored in the request context.
type ContextVerifier struct{}

func (ContextVerifier) RequireActor(ctx context.Context, principal id.Principal) error {
	if principal.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "request is not authenticated")
	}
	if actor != principal {
		return dErrors.Newf(dErrors.CodeUnauthorized, "caller is not authorized as %s", principal)
	}
	return nil
}

// AllowAll authorizes every principal. Test wiring only.
type AllowAll struct{}

func (AllowAll) RequireActor(context.Context, id.Principal) error {
	return nil
}
