package sabiaauth

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sabiarpg/sabia-auth/internal/config"
	"github.com/sabiarpg/sabia-auth/internal/http/handlers/auth/login"
	"github.com/sabiarpg/sabia-auth/internal/http/handlers/auth/logout"
	"github.com/sabiarpg/sabia-auth/internal/http/handlers/auth/me"
	"github.com/sabiarpg/sabia-auth/internal/http/handlers/health"
	usercreate "github.com/sabiarpg/sabia-auth/internal/http/handlers/users/create"
	userlist "github.com/sabiarpg/sabia-auth/internal/http/handlers/users/list"
	"github.com/sabiarpg/sabia-auth/internal/http/handlers/users/updaterole"
	"github.com/sabiarpg/sabia-auth/internal/http/middlewarectx"
	"github.com/sabiarpg/sabia-auth/internal/models"
	authservice "github.com/sabiarpg/sabia-auth/internal/services/auth"
	"github.com/sabiarpg/sabia-auth/internal/session"
)

// RegisterRoutes registers every route of the service.
func RegisterRoutes(r chi.Router, logger *slog.Logger, service *authservice.Service, sessions *session.Store, cookie config.Session) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Open endpoints
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.LoginRateLimitMiddleware(logger))
			r.Post("/auth/login", login.New(logger, service, cookie, sessions.TTL()).ServeHTTP)
		})
		r.Post("/auth/logout", logout.New(logger, service, cookie).ServeHTTP)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.SessionMiddleware(sessions, cookie.CookieName, logger))
			r.Get("/auth/me", me.New(logger).ServeHTTP)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(service, logger, models.RoleAdmin))
				r.Post("/users", usercreate.New(logger, service).ServeHTTP)
				r.Put("/users/{id}/role", updaterole.New(logger, service).ServeHTTP)
			})

			// Managers see the account listing too
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(service, logger, models.RoleManager, models.RoleAdmin))
				r.Get("/users", userlist.New(logger, service).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
