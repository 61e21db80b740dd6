// Package models - activity_log.go defines the ActivityLog model for recording
// authorization-relevant events, capturing application, affected account, client
// IP/HWID/user-agent, and arbitrary metadata.
package models

import "time"

// ActivityLog represents one immutable audit record. A row is written for
// every terminal pipeline outcome (success or rejection) except unresolved
// API keys and unknown usernames, which have no application or user to
// attribute the event to.
type ActivityLog struct {
	ID            string
	ApplicationID string
	AppUserID     *string // Nullable: some events have no resolved account
	Event         string  // "user_login", "login_blocked_ip", ...
	Success       bool
	ErrorMessage  *string
	IPAddress     *string
	HWID          *string
	UserAgent     *string
	Metadata      map[string]interface{} // JSONB: additional context
	CreatedAt     time.Time
}
