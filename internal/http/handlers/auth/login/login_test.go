package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabiarpg/sabia-auth/internal/config"
	"github.com/sabiarpg/sabia-auth/internal/http/handlers/auth/login"
	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/models"
	"github.com/sabiarpg/sabia-auth/internal/services/auth"
)

type serviceMock struct {
	LoginFunc func(ctx context.Context, email, rawPassword string) (models.Identity, string, error)
}

func (m *serviceMock) Login(ctx context.Context, email, rawPassword string) (models.Identity, string, error) {
	return m.LoginFunc(ctx, email, rawPassword)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const sessionTTL = 24 * time.Hour

func cookieCfg() config.Session {
	return config.Session{
		CookieName:   "sabia_session",
		TTL:          sessionTTL,
		CookieSecure: false,
	}
}

func TestLoginHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		body, _ := json.Marshal(login.Request{
			Email:    "gestor@example.com",
			Password: "Senha123!",
		})

		service := &serviceMock{
			LoginFunc: func(_ context.Context, email, rawPassword string) (models.Identity, string, error) {
				require.Equal(t, "gestor@example.com", email)
				require.Equal(t, "Senha123!", rawPassword)
				return models.Identity{
					UserUID: "uid-1",
					Email:   "gestor@example.com",
					Role:    models.RoleManager,
				}, "session-id-1", nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		login.New(newNoopLogger(), service, cookieCfg(), sessionTTL).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.StatusOK, resp.Status)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "uid-1", data["id"])
		assert.Equal(t, "gestor@example.com", data["email"])
		assert.Equal(t, "manager", data["role"])
		assert.NotContains(t, w.Body.String(), "password")
		assert.NotContains(t, w.Body.String(), "hash")

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "sabia_session", cookies[0].Name)
		assert.Equal(t, "session-id-1", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, int(sessionTTL.Seconds()), cookies[0].MaxAge,
			"cookie must expire together with the session")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		service := &serviceMock{
			LoginFunc: func(context.Context, string, string) (models.Identity, string, error) {
				t.Fatal("Login should not be called")
				return models.Identity{}, "", nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{bad json")))
		w := httptest.NewRecorder()

		login.New(newNoopLogger(), service, cookieCfg(), sessionTTL).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid request body")
	})

	t.Run("validation error", func(t *testing.T) {
		body, _ := json.Marshal(login.Request{
			Email:    "not-an-email",
			Password: "short",
		})
		service := &serviceMock{
			LoginFunc: func(context.Context, string, string) (models.Identity, string, error) {
				t.Fatal("Login should not be called")
				return models.Identity{}, "", nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		login.New(newNoopLogger(), service, cookieCfg(), sessionTTL).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "field Email must be a valid email address")
	})

	t.Run("invalid credentials", func(t *testing.T) {
		body, _ := json.Marshal(login.Request{
			Email:    "gestor@example.com",
			Password: "WrongPass1!",
		})
		service := &serviceMock{
			LoginFunc: func(context.Context, string, string) (models.Identity, string, error) {
				return models.Identity{}, "", auth.ErrInvalidCredentials
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		login.New(newNoopLogger(), service, cookieCfg(), sessionTTL).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid credentials")
		assert.Empty(t, w.Result().Cookies(), "no cookie on a failed login")
	})

	t.Run("internal error does not leak detail", func(t *testing.T) {
		body, _ := json.Marshal(login.Request{
			Email:    "gestor@example.com",
			Password: "Senha123!",
		})
		service := &serviceMock{
			LoginFunc: func(context.Context, string, string) (models.Identity, string, error) {
				return models.Identity{}, "", errors.New("pq: connection refused on 10.0.0.3")
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		login.New(newNoopLogger(), service, cookieCfg(), sessionTTL).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal service error")
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
