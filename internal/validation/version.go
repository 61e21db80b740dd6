// Package validation provides input validation helpers for the client API:
// client version comparison against an application's required version, and
// format checks for usernames, emails, and HWIDs at registration time.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
)

// ValidateSemver validates that a version string is valid semantic versioning
func ValidateSemver(versionStr string) error {
	_, err := version.NewVersion(versionStr)
	if err != nil {
		return fmt.Errorf("invalid semantic version: %w", err)
	}
	return nil
}

// VersionMatches reports whether a client-supplied version satisfies an
// application's required version. Required being empty means no enforcement.
// When either side fails to parse as semver, falls back to an exact string
// comparison so a typo in the dashboard does not lock every client out for
// sending the same typo back.
func VersionMatches(clientVersion, requiredVersion string) bool {
	if requiredVersion == "" {
		return true
	}

	cv, errC := version.NewVersion(clientVersion)
	rv, errR := version.NewVersion(requiredVersion)
	if errC != nil || errR != nil {
		return strings.TrimSpace(clientVersion) == strings.TrimSpace(requiredVersion)
	}

	return cv.Equal(rv)
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

// ValidateUsername checks username format for registration
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-64 characters of letters, digits, underscore, dot, or hyphen")
	}
	return nil
}

// ValidateEmail does a light sanity check on an email address. Full RFC
// validation is not attempted; the address is never used for delivery here.
func ValidateEmail(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || len(email) > 254 {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// MaxHWIDLength bounds hardware identifier strings to keep index sizes sane
const MaxHWIDLength = 256

// ValidateHWID checks a hardware identifier string
func ValidateHWID(hwid string) error {
	if hwid == "" {
		return fmt.Errorf("hwid must not be empty")
	}
	if len(hwid) > MaxHWIDLength {
		return fmt.Errorf("hwid exceeds maximum length of %d", MaxHWIDLength)
	}
	return nil
}
