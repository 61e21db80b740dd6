// jwt.go issues and verifies the HS256 session tokens the owner dashboard
// uses against the admin API. The signing secret comes from KF_JWT_SECRET and
// is resolved once at startup.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// jwtSecret holds the validated JWT secret
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// Claims represents the JWT claims structure for dashboard sessions
type Claims struct {
	OwnerID string `json:"owner_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// isDevMode reports whether the process runs in development mode. Duplicated
// here to avoid an import cycle with config.
func isDevMode() bool {
	devMode := os.Getenv("DEV_MODE")
	ginMode := os.Getenv("GIN_MODE")

	return devMode == "true" || devMode == "1" || ginMode == "debug"
}

// generateRandomSecret creates a throwaway dev-mode signing secret.
func generateRandomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// ValidateJWTSecret checks that the JWT secret is properly configured.
// In production, this will fail if KF_JWT_SECRET is not set.
// In dev mode, it will generate a random secret and log a warning.
// Call this at application startup.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("KF_JWT_SECRET")

		if secret == "" {
			if isDevMode() {
				jwtSecret = generateRandomSecret()
				log.Printf("WARNING: KF_JWT_SECRET not set. Using auto-generated secret for development.")
				log.Printf("WARNING: Sessions will not persist across restarts. Set KF_JWT_SECRET for persistent sessions.")
			} else {
				jwtSecretErr = errors.New("SECURITY ERROR: KF_JWT_SECRET environment variable is required in production. " +
					"Generate a secure secret with: openssl rand -hex 32")
			}
			return
		}

		if len(secret) < 32 {
			log.Printf("WARNING: KF_JWT_SECRET is shorter than recommended 32 characters. Consider using a longer secret.")
		}

		jwtSecret = secret
	})

	return jwtSecretErr
}

// GetJWTSecret retrieves the validated JWT secret.
// Panics if ValidateJWTSecret() hasn't been called or failed.
func GetJWTSecret() string {
	if jwtSecret == "" {
		// If ValidateJWTSecret wasn't called, try to validate now
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// GenerateJWT creates a session token for an authenticated owner. A zero
// expiresIn means one hour.
func GenerateJWT(ownerID, email string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = 1 * time.Hour
	}

	claims := &Claims{
		OwnerID: ownerID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "keyforge",
			Subject:   ownerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(GetJWTSecret()))
}

// ValidateJWT parses a session token and returns its claims. The signing
// method is pinned to HMAC so an alg-swapped token can never verify.
func ValidateJWT(tokenString string) (*Claims, error) {
	secret := GetJWTSecret()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
