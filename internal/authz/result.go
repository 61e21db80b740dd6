// Package authz implements the login authorization pipeline: a fixed-order,
// short-circuiting sequence of blacklist, version, credential, account-state,
// and hardware-lock checks that decides every login attempt, plus the
// register and verify operations that share its stores.
package authz

import (
	"net/http"

	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/notify"
)

// RejectKind enumerates every way a login attempt can be refused. Each kind
// maps to one HTTP status and at most one activity/webhook event.
type RejectKind string

const (
	RejectInvalidAPIKey       RejectKind = "invalid_api_key"
	RejectBlacklistedIP       RejectKind = "blacklisted_ip"
	RejectBlacklistedUsername RejectKind = "blacklisted_username"
	RejectBlacklistedHWID     RejectKind = "blacklisted_hwid"
	RejectVersionMismatch     RejectKind = "version_mismatch"
	RejectInvalidCredentials  RejectKind = "invalid_credentials"
	RejectAccountDisabled     RejectKind = "account_disabled"
	RejectAccountPaused       RejectKind = "account_paused"
	RejectAccountExpired      RejectKind = "account_expired"
	RejectHWIDMismatch        RejectKind = "hwid_mismatch"
	RejectHWIDRequired        RejectKind = "hwid_required"
)

// HTTPStatus maps a rejection kind to the status code returned to the client.
func (k RejectKind) HTTPStatus() int {
	switch k {
	case RejectInvalidAPIKey, RejectInvalidCredentials:
		return http.StatusUnauthorized
	case RejectVersionMismatch:
		return http.StatusBadRequest
	default:
		return http.StatusForbidden
	}
}

// EventName maps a rejection kind to the activity/webhook event it produces.
// Returns "" for kinds that deliberately produce no event: unknown API keys
// (no application resolved) and unresolved usernames (anti-enumeration).
func (k RejectKind) EventName() string {
	switch k {
	case RejectBlacklistedIP:
		return notify.EventLoginBlockedIP
	case RejectBlacklistedUsername:
		return notify.EventLoginBlockedUsername
	case RejectBlacklistedHWID:
		return notify.EventLoginBlockedHWID
	case RejectVersionMismatch:
		return notify.EventLoginVersionMismatch
	case RejectAccountDisabled:
		return notify.EventLoginAccountDisabled
	case RejectAccountPaused:
		return notify.EventLoginAccountPaused
	case RejectAccountExpired:
		return notify.EventLoginAccountExpired
	case RejectInvalidCredentials:
		return notify.EventLoginFailed
	case RejectHWIDMismatch:
		return notify.EventLoginHWIDMismatch
	case RejectHWIDRequired:
		return notify.EventLoginHWIDRequired
	default:
		return ""
	}
}

// LoginResult is the single terminal outcome of one login attempt. Exactly
// one of Success or Reject is meaningful; callers branch on Success.
type LoginResult struct {
	Success bool
	Reject  RejectKind // zero value when Success
	Message string

	// Populated only for RejectVersionMismatch
	RequiredVersion string
	CurrentVersion  string

	// Populated only on success
	User       *models.AppUser
	HWIDLocked bool
}

// RegisterResult is the outcome of a register request.
type RegisterResult struct {
	Success bool
	Message string
	User    *models.AppUser
}

// VerifyResult is the outcome of a verify request. Verify is deliberately
// narrower than login: it checks existence, the active flag, and expiration
// only, so clients can use it as a cheap session liveness probe.
type VerifyResult struct {
	Success  bool
	NotFound bool
	Message  string
	User     *models.AppUser
}
