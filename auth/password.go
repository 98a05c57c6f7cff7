package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Hasher adapts the bcrypt helpers to the service.PasswordHasher interface.
type Hasher struct{}

func (Hasher) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

func (Hasher) CheckPassword(hash, password string) bool {
	return CheckPassword(hash, password)
}
