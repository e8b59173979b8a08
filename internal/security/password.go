package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 7

var ErrWeakPassword = errors.New("password must be at least 7 characters and must not contain \"password\"")

// ValidatePassword enforces the password policy applied at registration and
// on password change: minimum length, and the literal word "password" is banned.
func ValidatePassword(plain string) error {
	if len(plain) < minPasswordLength {
		return ErrWeakPassword
	}

	if strings.Contains(strings.ToLower(plain), "password") {
		return ErrWeakPassword
	}

	return nil
}

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
