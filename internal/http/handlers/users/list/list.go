// Package list implements the account listing endpoint for managers and
// admins. Password hashes never leave the service.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/lib/sl"
	"github.com/sabiarpg/sabia-auth/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Service is the slice of the auth business logic this handler needs.
type Service interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// Item is one account in the listing.
type Item struct {
	ID       string      `json:"id"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

// Handler handles GET /users.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a user-list Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List accounts
// @Description Returns accounts paginated with limit/offset query parameters.
// @Tags Users
// @Produce  json
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Response "Accounts"
// @Failure 500 {object} response.Response "Internal error"
// @Router /users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= maxLimit {
			limit = parsed
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	items := make([]Item, 0, len(users))
	for _, u := range users {
		items = append(items, Item{
			ID:       u.UID,
			Email:    u.Email,
			FullName: u.FullName,
			Role:     u.Role,
		})
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"users":  items,
		"limit":  limit,
		"offset": offset,
	}))
}
