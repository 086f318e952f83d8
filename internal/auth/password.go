package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	PasswordMinLength = 8
	// bcrypt ignores input past 72 bytes.
	PasswordMaxBytes = 72
)

// ErrInvalidCredentials is returned when a password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidatePassword checks the length bounds for new passwords.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > PasswordMaxBytes {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
