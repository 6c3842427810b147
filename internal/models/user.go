// Package models contains the domain model for platform accounts: the user
// record as stored in the credential store, the closed set of roles, and the
// identity snapshot attached to authenticated requests.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Role is the privilege level of an account. The canonical vocabulary is
// English; the Portuguese values used by the legacy platform are accepted at
// the external boundary only (see ParseRole).
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ErrUnknownRole is returned by ParseRole for values outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole maps an external role value to its canonical form. Legacy
// Portuguese values (aluno, professor, gestor) are translated here and
// nowhere else.
func ParseRole(s string) (Role, error) {
	switch s {
	case "student", "aluno":
		return RoleStudent, nil
	case "teacher", "professor":
		return RoleTeacher, nil
	case "manager", "gestor":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the canonical role values.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleManager, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// User is an account record in the credential store. PasswordHash holds a
// scrypt derivation in the form "<hex-digest>.<hex-salt>".
type User struct {
	UID          string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Identity is the snapshot of "who is calling" cached in a session at login
// time and attached to the request context by the session middleware.
type Identity struct {
	UserUID string `json:"user_uid"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
}
