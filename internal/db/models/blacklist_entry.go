// Package models - blacklist_entry.go defines the BlacklistEntry block rule,
// keyed by (type, value) and scoped either to one application or globally.
package models

import "time"

// Blacklist entry types. An active entry matching a login attempt's
// IP/username/HWID rejects the attempt before any credential check runs.
const (
	BlacklistTypeIP       = "ip"
	BlacklistTypeUsername = "username"
	BlacklistTypeEmail    = "email"
	BlacklistTypeHWID     = "hwid"
)

// ValidBlacklistType reports whether t is one of the recognized entry types.
func ValidBlacklistType(t string) bool {
	switch t {
	case BlacklistTypeIP, BlacklistTypeUsername, BlacklistTypeEmail, BlacklistTypeHWID:
		return true
	}
	return false
}

// BlacklistEntry represents a block rule. A nil ApplicationID means the rule
// is global and applies to every application.
type BlacklistEntry struct {
	ID            string    `db:"id"`
	ApplicationID *string   `db:"application_id"`
	Type          string    `db:"type"`
	Value         string    `db:"value"`
	Reason        *string   `db:"reason"`
	IsActive      bool      `db:"is_active"`
	CreatedAt     time.Time `db:"created_at"`
}

// IsGlobal reports whether the entry applies across all applications.
func (e *BlacklistEntry) IsGlobal() bool {
	return e.ApplicationID == nil
}
