// Package password implements hashing and verification of account passwords.
//
// Stored values have the form "<hex-digest>.<hex-salt>", where the digest is
// a 64-byte scrypt derivation of the plaintext with the salt. Verification
// fails closed: a malformed stored value or a derivation error is never
// treated as a match.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters, fixed for every stored hash.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	keyLen       = 64
	saltLen      = 16
	hashSaltSep  = "."
	hashStoreLen = 2
)

// ErrInvalidCredentialFormat is returned when a stored hash does not have
// the "<hex-digest>.<hex-salt>" form.
var ErrInvalidCredentialFormat = errors.New("invalid stored credential format")

// ErrPasswordMismatch is returned when the plaintext does not derive to the
// stored digest.
var ErrPasswordMismatch = errors.New("password mismatch")

// Hash derives a storable hash from a plaintext password using a random
// salt.
func Hash(plaintext string) (string, error) {
	const op = "password.Hash"
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	key, err := scrypt.Key([]byte(plaintext), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(key) + hashSaltSep + hex.EncodeToString(salt), nil
}

// Verify re-derives the key from plaintext and the salt embedded in stored
// and compares it against the stored digest in constant time. Returns nil on
// a match, ErrPasswordMismatch on a clean mismatch, and
// ErrInvalidCredentialFormat when stored cannot be parsed. Any error path
// means "not a match".
func Verify(plaintext, stored string) error {
	const op = "password.Verify"

	parts := strings.Split(stored, hashSaltSep)
	if len(parts) != hashStoreLen || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentialFormat)
	}
	digest, err := hex.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentialFormat)
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentialFormat)
	}
	if len(digest) != keyLen {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentialFormat)
	}

	key, err := scrypt.Key([]byte(plaintext), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if subtle.ConstantTimeCompare(key, digest) != 1 {
		return fmt.Errorf("%s: %w", op, ErrPasswordMismatch)
	}
	return nil
}
