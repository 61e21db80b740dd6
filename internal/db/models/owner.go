// Package models - owner.go defines the Owner model for dashboard accounts
// that create and manage applications.
package models

import "time"

// Owner represents an account holder who owns applications and webhooks.
// Owners authenticate against the admin API with email+password and receive
// a JWT session token.
type Owner struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"` // bcrypt; never serialized to clients
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
