//go:build ignore

// generate-key.go is a development utility for seeding a usable application
// API key in a local database without going through the dashboard flow. It
// prints the raw key plus a ready-to-run SQL UPDATE statement. It also prints
// a fresh 32-byte value suitable for KF_ENCRYPTION_KEY. Run it directly:
//
//	go run scripts/generate-key.go
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	// Application API key: kf_ prefix plus 32 random bytes, base64url.
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		log.Fatal(err)
	}
	apiKey := "kf_" + base64.RawURLEncoding.EncodeToString(randomBytes)

	// Webhook secret encryption key: must be exactly 32 bytes of raw text.
	keyBytes := make([]byte, 24)
	if _, err := rand.Read(keyBytes); err != nil {
		log.Fatal(err)
	}
	encryptionKey := base64.RawURLEncoding.EncodeToString(keyBytes) // 32 chars

	fmt.Println("==========================================================")
	fmt.Println("API Key Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nFull Key: %s\n", apiKey)
	fmt.Println("\n==========================================================")
	fmt.Println("SQL Update:")
	fmt.Println("==========================================================")
	fmt.Printf(`
UPDATE applications
SET api_key = '%s'
WHERE name = 'Dev App';
`, apiKey)
	fmt.Println("\n==========================================================")
	fmt.Printf("X-API-Key Header: %s\n", apiKey)
	fmt.Printf("\nKF_ENCRYPTION_KEY candidate: %s\n", encryptionKey)
	fmt.Println("==========================================================")
}
