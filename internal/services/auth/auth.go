// Package auth contains the business logic of the authentication subsystem:
// login against the credential store, session issuance and revocation, and
// account provisioning.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sabiarpg/sabia-auth/internal/lib/password"
	"github.com/sabiarpg/sabia-auth/internal/metrics"
	"github.com/sabiarpg/sabia-auth/internal/models"
	"github.com/sabiarpg/sabia-auth/internal/storage"
)

// ErrInvalidCredentials is the uniform login failure: unknown email and
// wrong password are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailTaken is returned when provisioning an account with an email that
// already exists.
var ErrEmailTaken = errors.New("email already registered")

const uniqueViolation = "23505"

// CredentialStore is the read/write contract with the account table.
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) (string, error)
	UpdateUserRole(ctx context.Context, uid string, role models.Role) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// SessionStore is the contract with the session manager.
type SessionStore interface {
	Create(ctx context.Context, identity models.Identity) (string, error)
	Destroy(ctx context.Context, sessionID string) error
	DestroyAllForUser(ctx context.Context, userUID string) error
}

// Service ties the credential store, password verification and the session
// store together.
type Service struct {
	users    CredentialStore
	sessions SessionStore
}

// NewService creates a new auth Service.
func NewService(users CredentialStore, sessions SessionStore) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
	}
}

// Login verifies the email/password pair and, on success, creates a session
// and returns the identity snapshot with the new session id. Unknown email
// and wrong password both fail with ErrInvalidCredentials; the session is
// only created after verification succeeded, so a rejected login leaves no
// state behind. A malformed stored hash or a derivation error is a server
// defect and is returned as-is, never as a successful verification.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (models.Identity, string, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return models.Identity{}, "", ErrInvalidCredentials
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return models.Identity{}, "", fmt.Errorf("%s: %w", op, err)
	}

	if err := password.Verify(rawPassword, user.PasswordHash); err != nil {
		if errors.Is(err, password.ErrPasswordMismatch) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return models.Identity{}, "", ErrInvalidCredentials
		}
		// Malformed stored hash or scrypt failure: fail closed.
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return models.Identity{}, "", fmt.Errorf("%s: %w", op, err)
	}

	identity := models.Identity{
		UserUID: user.UID,
		Email:   user.Email,
		Role:    user.Role,
	}
	sessionID, err := s.sessions.Create(ctx, identity)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return models.Identity{}, "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	metrics.SessionsCreated.Inc()
	return identity, sessionID, nil
}

// Logout destroys the session. Destroying a session that does not exist is
// not an error, so logout is idempotent.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	const op = "auth.Logout"
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.SessionsDestroyed.WithLabelValues("logout").Inc()
	return nil
}

// CreateUser provisions a new account with a hashed password.
func (s *Service) CreateUser(ctx context.Context, email, fullName, rawPassword string, role models.Role) (string, error) {
	const op = "auth.CreateUser"

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	uid, err := s.users.CreateUser(ctx, models.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hashed,
		Role:         role,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// UpdateUserRole changes the role of an account and revokes every live
// session of that user, so the new privilege level applies immediately.
func (s *Service) UpdateUserRole(ctx context.Context, uid string, role models.Role) error {
	const op = "auth.UpdateUserRole"

	if err := s.users.UpdateUserRole(ctx, uid, role); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sessions.DestroyAllForUser(ctx, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.SessionsDestroyed.WithLabelValues("role_change").Inc()
	return nil
}

// ListUsers returns accounts for the admin listing.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "auth.ListUsers"
	users, err := s.users.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// CurrentRole re-reads the role of an account from the credential store.
// Authorization checks call this on every request so that role changes take
// effect without re-login.
func (s *Service) CurrentRole(ctx context.Context, userUID string) (models.Role, error) {
	const op = "auth.CurrentRole"
	user, err := s.users.GetUserByUID(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return user.Role, nil
}
