// Package auth - password.go wraps bcrypt for credential hashing. Used for
// both end-user passwords (register/login) and dashboard owner passwords.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 12

// MaxPasswordLength is bcrypt's input limit; longer passwords are rejected
// at registration rather than silently truncated.
const MaxPasswordLength = 72

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", errors.New("password exceeds maximum length of 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a stored bcrypt hash
func VerifyPassword(password, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	return err == nil
}
