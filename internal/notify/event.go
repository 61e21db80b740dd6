// Package notify implements the activity and webhook notifier: every terminal
// authorization outcome is recorded as an activity log row and, for owners with
// subscribed webhooks, delivered as an HTTP notification with retry/backoff.
// The audit write is synchronous and best-effort; webhook delivery is
// backgrounded so it never delays the caller-visible response.
package notify

import (
	"context"

	"github.com/keyforge/keyforge/internal/db/models"
)

// Event names recorded in activity logs and matched against webhook
// subscriptions. Owners subscribe webhooks to a subset of these.
const (
	EventUserLogin            = "user_login"
	EventUserRegister         = "user_register"
	EventLoginBlockedIP       = "login_blocked_ip"
	EventLoginBlockedUsername = "login_blocked_username"
	EventLoginBlockedHWID     = "login_blocked_hwid"
	EventLoginVersionMismatch = "login_version_mismatch"
	EventLoginAccountDisabled = "login_account_disabled"
	EventLoginAccountPaused   = "login_account_paused"
	EventLoginAccountExpired  = "login_account_expired"
	EventLoginFailed          = "login_failed"
	EventLoginHWIDMismatch    = "login_hwid_mismatch"
	EventLoginHWIDRequired    = "login_hwid_required"
	EventHWIDReset            = "hwid_reset"
	EventAccountExpiring      = "account_expiring"
)

// AllEvents lists every event name a webhook may subscribe to.
func AllEvents() []string {
	return []string{
		EventUserLogin,
		EventUserRegister,
		EventLoginBlockedIP,
		EventLoginBlockedUsername,
		EventLoginBlockedHWID,
		EventLoginVersionMismatch,
		EventLoginAccountDisabled,
		EventLoginAccountPaused,
		EventLoginAccountExpired,
		EventLoginFailed,
		EventLoginHWIDMismatch,
		EventLoginHWIDRequired,
		EventHWIDReset,
		EventAccountExpiring,
	}
}

// ValidEvent reports whether name is a recognized event name.
func ValidEvent(name string) bool {
	for _, e := range AllEvents() {
		if e == name {
			return true
		}
	}
	return false
}

// Event is one authorization-relevant occurrence to record and deliver.
type Event struct {
	Name         string
	Application  *models.Application
	User         *models.AppUser // nil when no user was resolved
	Success      bool
	ErrorMessage string
	IPAddress    string
	HWID         string
	UserAgent    string
	Metadata     map[string]interface{}
}

// Recorder is the interface the authorization pipeline uses to report
// terminal outcomes. Satisfied by *Notifier.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}
