package testutil

import (
	"net/http"
	"time"

	id "arkhiv/pkg/domain"
	"arkhiv/pkg/requestcontext"
)

// WithPrincipal stamps an authenticated principal onto the request context,
// simulating what the auth middleware does for a valid token. Invalid user
// IDs are silently ignored so tests can exercise the unauthenticated path.
func WithPrincipal(req *http.Request, userID string, role id.Role) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithPrincipal(req.Context(), id.Principal{ID: parsed, Role: role})
	return req.WithContext(ctx)
}

// WithFrozenTime pins the request-scoped clock, the one decision stamps are
// read from, to a fixed instant.
func WithFrozenTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
