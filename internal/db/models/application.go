// Package models defines the database model types for Keyforge.
// Each type corresponds to a database table and uses struct tags for both JSON serialization and sqlx row scanning where needed.
// Models are pure data types. Business logic belongs in the authz and notify packages; query logic belongs in the repositories layer.
package models

import "time"

// Application represents a tenant's registered product. Its API key is the
// sole credential client programs present to the public API, and its message
// templates customize the text returned on each login rejection kind.
type Application struct {
	ID              string
	OwnerID         string
	Name            string
	APIKey          string // Opaque bearer secret, unique across all applications
	IsActive        bool
	RequiredVersion *string // When set, clients supplying a version must match it
	HWIDLockEnabled bool
	Messages        MessageTemplates
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MessageTemplates holds the owner-customizable rejection/success messages.
// Each has a database default, so a freshly created application behaves
// sensibly without any owner configuration.
type MessageTemplates struct {
	LoginSuccess    string
	LoginFailed     string
	Disabled        string
	Expired         string
	Paused          string
	VersionMismatch string
	HWIDMismatch    string
}

// DefaultMessages returns the standard message templates applied to a new
// application when the owner has not customized them. The values mirror the
// column defaults in the schema so that rows created through the API and rows
// created by hand behave identically.
func DefaultMessages() MessageTemplates {
	return MessageTemplates{
		LoginSuccess:    "Login successful",
		LoginFailed:     "Invalid username or password",
		Disabled:        "Your account has been disabled",
		Expired:         "Your subscription has expired",
		Paused:          "Your account is paused. Contact the application owner.",
		VersionMismatch: "Please update to the latest version",
		HWIDMismatch:    "Login blocked: unrecognized machine",
	}
}
