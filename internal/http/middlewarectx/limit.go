package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/metrics"
)

// LoginRateLimitMiddleware bounds the rate of login attempts to slow down
// credential stuffing. One token per second with a small burst, shared
// across callers.
func LoginRateLimitMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(1, 5)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("login rate limit exceeded")
				metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
