// Package auth provides authentication primitives: API key generation for
// applications, bcrypt password hashing for end-user and owner credentials,
// and JWT creation/verification for dashboard sessions.
// See internal/middleware/auth.go for the request-time logic that uses these.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// APIKeyPrefix identifies Keyforge application keys at a glance
	APIKeyPrefix = "kf"

	// APIKeyLength is the length of the random part of the API key in bytes
	APIKeyLength = 32

	// DisplayPrefixLength is the number of characters to show in displays
	DisplayPrefixLength = 10
)

// GenerateAPIKey creates a new random application API key.
// Returns: full key (stored and shown in the dashboard), display prefix.
func GenerateAPIKey() (key string, displayPrefix string, err error) {
	randomBytes := make([]byte, APIKeyLength)
	_, err = rand.Read(randomBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullKey := fmt.Sprintf("%s_%s", APIKeyPrefix, randomPart)

	displayPrefixStr := fullKey
	if len(fullKey) > DisplayPrefixLength {
		displayPrefixStr = fullKey[:DisplayPrefixLength]
	}

	return fullKey, displayPrefixStr, nil
}

// CompareAPIKeys does a constant-time comparison of two API keys
func CompareAPIKeys(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ExtractAPIKeyFromHeader extracts the API key from an Authorization header
// Expected format: "Bearer kf_abc123xyz..."
func ExtractAPIKeyFromHeader(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	key := strings.TrimPrefix(header, "Bearer ")
	key = strings.TrimSpace(key)

	if key == "" {
		return "", errors.New("API key is empty after Bearer prefix")
	}

	return key, nil
}
