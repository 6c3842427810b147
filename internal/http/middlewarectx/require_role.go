package middlewarectx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/lib/sl"
	"github.com/sabiarpg/sabia-auth/internal/metrics"
	"github.com/sabiarpg/sabia-auth/internal/models"
	"github.com/sabiarpg/sabia-auth/internal/storage"
)

// RoleVerifier re-reads the current role of an account from the credential
// store, so that authorization reflects current privilege rather than
// privilege at login time.
type RoleVerifier interface {
	CurrentRole(ctx context.Context, userUID string) (models.Role, error)
}

// RequireRole returns middleware that only lets requests through when the
// caller's current role is in allowed. SessionMiddleware must run first; a
// missing identity is a 401. The role is re-verified against the credential
// store on every request, and a caller whose account vanished mid-session is
// rejected like one with no session.
func RequireRole(verifier RoleVerifier, log *slog.Logger, allowed ...models.Role) func(http.Handler) http.Handler {
	names := make([]string, len(allowed))
	for i, role := range allowed {
		names[i] = role.String()
	}
	forbiddenMsg := fmt.Sprintf("access restricted to roles: %s", strings.Join(names, ", "))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireRole"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				log.Error("identity missing from request context")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authentication required"))
				return
			}

			role, err := verifier.CurrentRole(r.Context(), identity.UserUID)
			if err != nil {
				if isUserGone(err) {
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, response.Error("authentication required"))
					return
				}
				log.Error("failed to verify current role", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			for _, want := range allowed {
				if role == want {
					// Downstream handlers see the verified role, not the
					// login-time snapshot.
					identity.Role = role
					ctx := context.WithValue(r.Context(), IdentityKey, identity)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			metrics.AuthzDenied.Inc()
			log.Info("role not permitted",
				slog.String("user_uid", identity.UserUID),
				slog.String("role", role.String()))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error(forbiddenMsg))
		})
	}
}

func isUserGone(err error) bool {
	return errors.Is(err, storage.ErrUserNotFound)
}
