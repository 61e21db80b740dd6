// Package models - app_user.go defines the AppUser model for end-user accounts
// scoped to a single application, including the HWID binding and login counters
// mutated by the authorization pipeline.
package models

import "time"

// AppUser represents an end-user account belonging to exactly one Application.
// (username, application) is unique; (email, application) is unique when email
// is present. HWID is nil until the first successful HWID-locked login binds it.
type AppUser struct {
	ID            string
	ApplicationID string
	Username      string
	Email         *string
	PasswordHash  string // bcrypt; never serialized to clients
	HWID          *string
	ExpiresAt     *time.Time
	IsActive      bool
	IsPaused      bool
	LoginAttempts int
	LastLogin     *time.Time
	LastAttempt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsExpired reports whether the account's expiration timestamp has passed.
// An account with no expiration never expires.
func (u *AppUser) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}

// HWIDBound reports whether a hardware ID has been bound to this account.
func (u *AppUser) HWIDBound() bool {
	return u.HWID != nil && *u.HWID != ""
}
