// hwid.go implements the hardware-ID lock state machine. Binding is
// first-write-wins: the HWID presented on the first lock-checked login becomes
// permanent until an owner resets it. The bind uses a conditional update so two
// concurrent first logins cannot both bind; the loser re-reads and compares.
package authz

import (
	"context"
	"fmt"

	"github.com/keyforge/keyforge/internal/db/models"
)

// HWIDStatus is the outcome of one hardware-lock check.
type HWIDStatus int

const (
	// HWIDOK means the supplied HWID matches the bound value
	HWIDOK HWIDStatus = iota
	// HWIDBound means the account was unbound and this login bound it
	HWIDBound
	// HWIDRequired means the account needs a HWID and none was supplied
	HWIDRequired
	// HWIDMismatch means the supplied HWID differs from the bound value
	HWIDMismatch
)

// HWIDLock performs hardware-lock checks and first-login binding.
type HWIDLock struct {
	users UserStore
}

// NewHWIDLock creates a HWIDLock over the given user store.
func NewHWIDLock(users UserStore) *HWIDLock {
	return &HWIDLock{users: users}
}

// Check runs the lock state machine for one login attempt. The caller has
// already verified credentials; Check never mutates anything except the
// unbound-to-bound transition.
func (l *HWIDLock) Check(ctx context.Context, user *models.AppUser, supplied string) (HWIDStatus, error) {
	if user.HWIDBound() {
		if supplied == *user.HWID {
			return HWIDOK, nil
		}
		return HWIDMismatch, nil
	}

	if supplied == "" {
		return HWIDRequired, nil
	}

	bound, err := l.users.BindHWID(ctx, user.ID, supplied)
	if err != nil {
		return 0, fmt.Errorf("failed to bind hwid: %w", err)
	}
	if bound {
		return HWIDBound, nil
	}

	// Lost the bind race to a concurrent login. Re-read and compare against
	// whatever won.
	fresh, err := l.users.GetAppUserByID(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to re-read user after bind race: %w", err)
	}
	if fresh != nil && fresh.HWIDBound() && *fresh.HWID == supplied {
		return HWIDOK, nil
	}
	return HWIDMismatch, nil
}
