// Package me implements the current-identity endpoint. The session
// middleware has already resolved the cookie; this handler only reads the
// identity from the request context.
package me

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sabiarpg/sabia-auth/internal/http/middlewarectx"
	"github.com/sabiarpg/sabia-auth/internal/http/response"
)

// Handler handles GET /auth/me.
type Handler struct {
	log *slog.Logger
}

// New creates a me Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Current identity
// @Description Returns the identity resolved from the session cookie.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response "Identity of the caller"
// @Failure 401 {object} response.Response "No valid session"
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		log.Error("identity missing from request context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("authentication required"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id":    identity.UserUID,
		"email": identity.Email,
		"role":  identity.Role,
	}))
}
