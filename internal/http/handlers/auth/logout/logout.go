// Package logout implements the HTTP handler that destroys the current
// session. Logout always succeeds, even when no session cookie is present,
// so repeated calls are harmless.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sabiarpg/sabia-auth/internal/config"
	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/lib/sl"
)

// Service is the slice of the auth business logic this handler needs.
type Service interface {
	Logout(ctx context.Context, sessionID string) error
}

// Handler handles POST /auth/logout.
type Handler struct {
	log     *slog.Logger
	service Service
	cookie  config.Session
}

// New creates a logout Handler.
func New(log *slog.Logger, service Service, cookie config.Session) *Handler {
	return &Handler{
		log:     log,
		service: service,
		cookie:  cookie,
	}
}

// ServeHTTP godoc
// @Summary Log out
// @Description Destroys the current session and clears the cookie. Idempotent.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if cookie, err := r.Cookie(h.cookie.CookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			// The client is logged out either way; the cookie is cleared
			// below and the session expires on its own.
			log.Error("failed to destroy session", sl.Err(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	render.JSON(w, r, response.OK())
}
