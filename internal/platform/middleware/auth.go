// Package middleware holds the session authentication middleware.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/httputil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// SessionCookie is the cookie set by POST /auth/login.
const SessionCookie = "session"

// Authenticator resolves a session token to the acting user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (requestcontext.ActorInfo, error)
}

// sessionToken prefers the Authorization header over the cookie.
func sessionToken(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireUser rejects requests without a valid session and stores the actor
// in the request context.
func RequireUser(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := sessionToken(r)
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing session"))
				return
			}
			actor, err := auth.Authenticate(ctx, token)
			if err != nil {
				level := slog.LevelWarn
				if dErrors.CodeOf(err) == dErrors.CodeInternal {
					level = slog.LevelError
				}
				logger.Log(ctx, level, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

// RequireRole allows only actors whose role is listed. It must run after
// RequireUser.
func RequireRole[R ~string](roles ...R) func(http.Handler) http.Handler {
	allowed := make([]string, len(roles))
	for i, role := range roles {
		allowed[i] = string(role)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(allowed, requestcontext.Actor(r.Context()).Role) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "your role cannot access this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
