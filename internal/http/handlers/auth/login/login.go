// Package login implements the HTTP handler for authentication requests.
//
// It decodes and validates the credential payload, delegates verification to
// the auth service and, on success, sets the HTTP-only session cookie and
// returns the identity. Unknown email and wrong password produce the same
// response, so the endpoint cannot be used to enumerate accounts.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/sabiarpg/sabia-auth/internal/config"
	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/lib/sl"
	"github.com/sabiarpg/sabia-auth/internal/models"
	"github.com/sabiarpg/sabia-auth/internal/services/auth"
)

// Request holds the login credentials.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Service is the slice of the auth business logic this handler needs.
type Service interface {
	Login(ctx context.Context, email, rawPassword string) (models.Identity, string, error)
}

// Handler handles POST /auth/login.
type Handler struct {
	log      *slog.Logger
	service  Service
	cookie   config.Session
	ttl      time.Duration
	validate *validator.Validate
}

// New creates a login Handler. ttl is the session store's lifetime; the
// cookie expires together with the session it carries.
func New(log *slog.Logger, service Service, cookie config.Session, ttl time.Duration) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		cookie:   cookie,
		ttl:      ttl,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Log in
// @Description Verifies email and password, sets the session cookie and returns the identity.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "User credentials"
// @Success 200 {object} response.Response "Identity of the logged-in user"
// @Failure 400 {object} response.Response "Malformed JSON"
// @Failure 401 {object} response.Response "Invalid credentials"
// @Failure 422 {object} response.Response "Validation failure"
// @Failure 500 {object} response.Response "Internal error"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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
	log.Info("request body decoded", slog.String("email", req.Email))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	identity, sessionID, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Info("login rejected", slog.String("email", req.Email))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid credentials"))
			return
		}
		log.Error("login failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	// The session write completed before Login returned, so the cookie
	// handed out here always resolves.
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("login success", slog.String("user_uid", identity.UserUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id":    identity.UserUID,
		"email": identity.Email,
		"role":  identity.Role,
	}))
}
