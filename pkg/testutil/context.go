package testutil

import (
	"net/http"
	"time"

	id "assetup/pkg/domain"
	"assetup/pkg/requestcontext"
)

// WithActor stamps the request context with an authenticated principal.
// This simulates what the auth middleware does for authenticated requests.
func WithActor(req *http.Request, principal id.Principal) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), principal))
}

// WithClock pins the ledger clock for the request.
func WithClock(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
