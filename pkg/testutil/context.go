package testutil

import (
	"net/http"

	id "smartgate/pkg/domain"
	"smartgate/pkg/requestcontext"
)

// WithSession puts the identity LoadSession would resolve onto the request
// context, for calling handlers without the session middleware.
func WithSession(req *http.Request, userID id.UserID, sessionID, role string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithSessionID(ctx, sessionID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}
