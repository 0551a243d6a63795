// Package requesttime pins one "now" per HTTP request so that domain
// timestamps and change-history entries written by the same request agree.
package requesttime

import (
	"net/http"
	"time"

	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// Middleware stamps every request with the current UTC time.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable clock.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
