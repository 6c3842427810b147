package me_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabiarpg/sabia-auth/internal/http/handlers/auth/me"
	"github.com/sabiarpg/sabia-auth/internal/http/middlewarectx"
	"github.com/sabiarpg/sabia-auth/internal/http/response"
	"github.com/sabiarpg/sabia-auth/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestMeHandler(t *testing.T) {
	t.Run("returns the attached identity", func(t *testing.T) {
		identity := models.Identity{
			UserUID: "uid-1",
			Email:   "aluno@example.com",
			Role:    models.RoleStudent,
		}

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		ctx := context.WithValue(req.Context(), middlewarectx.IdentityKey, identity)
		w := httptest.NewRecorder()

		me.New(newNoopLogger()).ServeHTTP(w, req.WithContext(ctx))

		require.Equal(t, http.StatusOK, w.Code)

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, "uid-1", data["id"])
		assert.Equal(t, "aluno@example.com", data["email"])
		assert.Equal(t, "student", data["role"])
	})

	t.Run("401 without identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		w := httptest.NewRecorder()

		me.New(newNoopLogger()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authentication required")
	})
}
