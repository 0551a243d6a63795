package testutil

import (
	"net/http"

	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// WithActor puts actor on the request context, as the session middleware
// would for an authenticated request.
func WithActor(req *http.Request, actor requestcontext.ActorInfo) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// ActorMiddleware injects the actor returned by current into every request.
// Tests switch users by changing what current returns.
func ActorMiddleware(current func() requestcontext.ActorInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithActor(r, current()))
		})
	}
}
