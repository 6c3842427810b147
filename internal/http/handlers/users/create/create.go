// Package create implements the admin endpoint that provisions platform
// accounts. Accounts are only ever created through here; the login flow
// never writes to the credential store.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/lib/sl"
	"github.com/sabiarpg/sabia-auth/internal/models"
	"github.com/sabiarpg/sabia-auth/internal/services/auth"
)

// Request holds the new account data. Role accepts both the canonical and
// the legacy Portuguese vocabulary.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

// Service is the slice of the auth business logic this handler needs.
type Service interface {
	CreateUser(ctx context.Context, email, fullName, rawPassword string, role models.Role) (string, error)
}

// Handler handles POST /users.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates a user-create Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Create account
// @Description Provisions a new platform account. Admin only.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body Request true "New account"
// @Success 200 {object} response.Response "UID of the new account"
// @Failure 400 {object} response.Response "Malformed JSON or unknown role"
// @Failure 409 {object} response.Response "Email already registered"
// @Failure 422 {object} response.Response "Validation failure"
// @Failure 500 {object} response.Response "Internal error"
// @Router /users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("email", req.Email), slog.String("role", req.Role))

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

	uid, err := h.service.CreateUser(r.Context(), req.Email, req.FullName, req.Password, role)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			log.Info("email already registered", slog.String("email", req.Email))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("email already registered"))
			return
		}
		log.Error("failed to create user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("user created", slog.String("uid", uid), slog.String("role", role.String()))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id":    uid,
		"email": req.Email,
		"role":  role,
	}))
}
