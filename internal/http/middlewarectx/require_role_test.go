package middlewarectx_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabiarpg/sabia-auth/internal/http/middlewarectx"
	"github.com/sabiarpg/sabia-auth/internal/models"
	"github.com/sabiarpg/sabia-auth/internal/storage"
)

type roleVerifierMock struct {
	CurrentRoleFunc func(ctx context.Context, userUID string) (models.Role, error)
}

func (m *roleVerifierMock) CurrentRole(ctx context.Context, userUID string) (models.Role, error) {
	return m.CurrentRoleFunc(ctx, userUID)
}

func requestWithIdentity(identity models.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	ctx := context.WithValue(req.Context(), middlewarectx.IdentityKey, identity)
	return req.WithContext(ctx)
}

func TestRequireRole_AllowsPermittedRole(t *testing.T) {
	verifier := &roleVerifierMock{
		CurrentRoleFunc: func(_ context.Context, uid string) (models.Role, error) {
			require.Equal(t, "uid-1", uid)
			return models.RoleManager, nil
		},
	}

	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	mw := middlewarectx.RequireRole(verifier, newNoopLogger(), models.RoleManager, models.RoleAdmin)(next)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, requestWithIdentity(managerIdentity()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerCalled)
}

func TestRequireRole_RejectsForbiddenRole(t *testing.T) {
	verifier := &roleVerifierMock{
		CurrentRoleFunc: func(context.Context, string) (models.Role, error) {
			return models.RoleStudent, nil
		},
	}

	mutated := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mutated = true
	})

	mw := middlewarectx.RequireRole(verifier, newNoopLogger(), models.RoleManager)(next)

	identity := managerIdentity()
	identity.Role = models.RoleStudent

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, requestWithIdentity(identity))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "access restricted to roles: manager")
	assert.False(t, mutated, "no handler may run after a 403")
}

func TestRequireRole_Deterministic(t *testing.T) {
	verifier := &roleVerifierMock{
		CurrentRoleFunc: func(context.Context, string) (models.Role, error) {
			return models.RoleStudent, nil
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	mw := middlewarectx.RequireRole(verifier, newNoopLogger(), models.RoleManager)(next)

	identity := managerIdentity()
	identity.Role = models.RoleStudent

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, requestWithIdentity(identity))
		require.Equal(t, http.StatusForbidden, w.Code, "iteration %d", i)
	}
}

func TestRequireRole_MissingIdentity(t *testing.T) {
	verifier := &roleVerifierMock{
		CurrentRoleFunc: func(context.Context, string) (models.Role, error) {
			t.Fatal("CurrentRole should not be called without an identity")
			return "", nil
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	mw := middlewarectx.RequireRole(verifier, newNoopLogger(), models.RoleManager)(next)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_StaleSnapshotUsesCurrentRole(t *testing.T) {
	// The session still says "manager" but the account was demoted; the
	// check must follow the credential store.
	verifier := &roleVerifierMock{
		CurrentRoleFunc: func(context.Context, string) (models.Role, error) {
			return models.RoleStudent, nil
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	mw := middlewarectx.RequireRole(verifier, newNoopLogger(), models.RoleManager)(next)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, requestWithIdentity(managerIdentity()))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole_PromotionTakesEffectWithoutRelogin(t *testing.T) {
	verifier := &roleVerifierMock{
		CurrentRoleFunc: func(context.Context, string) (models.Role, error) {
			return models.RoleAdmin, nil
		},
	}

	var seen models.Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middlewarectx.IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = identity.Role
	})

	mw := middlewarectx.RequireRole(verifier, newNoopLogger(), models.RoleAdmin)(next)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, requestWithIdentity(managerIdentity()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdmin, seen, "downstream handlers see the verified role")
}

func TestRequireRole_UserDeletedMidSession(t *testing.T) {
	verifier := &roleVerifierMock{
		CurrentRoleFunc: func(context.Context, string) (models.Role, error) {
			return "", fmt.Errorf("auth.CurrentRole: %w", storage.ErrUserNotFound)
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	mw := middlewarectx.RequireRole(verifier, newNoopLogger(), models.RoleManager)(next)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, requestWithIdentity(managerIdentity()))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_VerifierFailure(t *testing.T) {
	verifier := &roleVerifierMock{
		CurrentRoleFunc: func(context.Context, string) (models.Role, error) {
			return "", errors.New("connection refused")
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	mw := middlewarectx.RequireRole(verifier, newNoopLogger(), models.RoleManager)(next)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, requestWithIdentity(managerIdentity()))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused",
		"store errors must not leak to clients")
}
