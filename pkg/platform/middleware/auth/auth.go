// Package auth loads the session of a browser request and gates routes on it.
// Gates never fail hard: anonymous callers are sent to the login page and
// callers with the wrong role to the access-denied page.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	id "smartgate/pkg/domain"
	request "smartgate/pkg/platform/middleware/request"
	"smartgate/pkg/requestcontext"
)

// SessionClaims is what a valid session token resolves to.
type SessionClaims struct {
	UserID    id.UserID
	SessionID string
	Role      string
}

// SessionResolver validates a session token against the session store.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*SessionClaims, error)
}

// DeniedRecorder is notified whenever a role gate turns a caller away.
type DeniedRecorder interface {
	IncrementAccessDenied(requiredRole string)
}

// LoadSession reads the session cookie and, when it resolves, stores the
// caller's identity in the request context. Invalid cookies are cleared and
// the request continues anonymously.
func LoadSession(resolver SessionResolver, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			claims, err := resolver.Resolve(ctx, cookie.Value)
			if err != nil {
				logger.InfoContext(ctx, "discarding invalid session cookie",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
				next.ServeHTTP(w, r)
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession redirects anonymous callers to loginPath?next=<path>.
func RequireSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestcontext.UserID(r.Context()).IsNil() {
				http.Redirect(w, r, LoginRedirect(loginPath, r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits only callers whose session role is one of roles. It
// implies RequireSession.
func RequireRole(loginPath, deniedPath string, recorder DeniedRecorder, logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		gate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role := requestcontext.Role(ctx)
			if slices.Contains(roles, role) {
				next.ServeHTTP(w, r)
				return
			}
			logger.WarnContext(ctx, "role gate denied access",
				"user_id", requestcontext.UserID(ctx).String(),
				"role", role,
				"required", roles,
				"path", r.URL.Path,
				"request_id", request.GetRequestID(ctx),
			)
			if recorder != nil && len(roles) > 0 {
				recorder.IncrementAccessDenied(roles[0])
			}
			http.Redirect(w, r, deniedPath, http.StatusFound)
		})
		return RequireSession(loginPath)(gate)
	}
}

// LoginRedirect builds the login URL carrying the originally requested path.
func LoginRedirect(loginPath, next string) string {
	if next == "" || next == loginPath {
		return loginPath
	}
	return loginPath + "?" + url.Values{"next": {next}}.Encode()
}

// SafeNext returns next when it is a local absolute path, else fallback.
// Scheme-relative ("//host") and backslash tricks are rejected.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' {
		return fallback
	}
	if len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
