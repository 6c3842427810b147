// Package updaterole implements the admin endpoint that changes an
// account's role. Every live session of the affected user is revoked, so
// the new privilege level applies immediately instead of at next login.
package updaterole

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/lib/sl"
	"github.com/sabiarpg/sabia-auth/internal/models"
	"github.com/sabiarpg/sabia-auth/internal/storage"
)

// Request holds the new role. Accepts both the canonical and the legacy
// Portuguese vocabulary.
type Request struct {
	Role string `json:"role" validate:"required"`
}

// Service is the slice of the auth business logic this handler needs.
type Service interface {
	UpdateUserRole(ctx context.Context, uid string, role models.Role) error
}

// Handler handles PUT /users/{id}/role.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates an update-role Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Change account role
// @Description Updates the role of an account and revokes its live sessions. Admin only.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param id path string true "Account UID"
// @Param request body Request true "New role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response "Malformed JSON or unknown role"
// @Failure 404 {object} response.Response "Account not found"
// @Failure 422 {object} response.Response "Validation failure"
// @Failure 500 {object} response.Response "Internal error"
// @Router /users/{id}/role [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.updaterole"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid := chi.URLParam(r, "id")
	if uid == "" {
		log.Error("missing account id in route")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing account id"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		log.Error("unknown role", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown role"))
		return
	}

	if err := h.service.UpdateUserRole(r.Context(), uid, role); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("account not found", slog.String("uid", uid))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
			return
		}
		log.Error("failed to update role", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("role updated", slog.String("uid", uid), slog.String("role", role.String()))
	render.JSON(w, r, response.OK())
}
