// Package middlewarectx contains the HTTP middleware of the service: session
// authentication, role authorization and login rate limiting.
//
// SessionMiddleware resolves the session cookie through the session store
// and, on success, puts the identity snapshot into the request context under
// IdentityKey. It performs no role checks; RequireRole runs after it and
// decides whether the identity may proceed.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/lib/sl"
	"github.com/sabiarpg/sabia-auth/internal/models"
)

// Key is the type for request context keys set by this package.
type Key string

// IdentityKey is the context key under which the resolved models.Identity is
// stored.
const IdentityKey Key = "identity"

// SessionResolver resolves an opaque session id to the identity snapshot
// cached at login, or nil when the session does not exist or has expired.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*models.Identity, error)
}

// IdentityFromContext returns the identity attached by SessionMiddleware.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	return identity, ok
}

// SessionMiddleware returns middleware that requires a valid session cookie.
//
// A missing cookie, an unknown session id and an expired session all reject
// the request with 401 and the same message; no fallback identity is ever
// synthesized. A session store failure is a 500, logged with detail.
func SessionMiddleware(sessions SessionResolver, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				if err != nil && !errors.Is(err, http.ErrNoCookie) {
					log.Error("failed to read session cookie", sl.Err(err))
				}
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authentication required"))
				return
			}

			identity, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				log.Error("failed to resolve session", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}
			if identity == nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authentication required"))
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
