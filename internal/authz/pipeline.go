// pipeline.go orchestrates the ordered login checks. The order is fixed and
// short-circuiting: blacklists before version, version before credentials,
// credentials before the hardware lock. Cheap attacker-controllable checks run
// first, and the order decides which audit event a rejection produces.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/keyforge/keyforge/internal/auth"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/notify"
	"github.com/keyforge/keyforge/internal/telemetry"
	"github.com/keyforge/keyforge/internal/validation"
)

// UserStore is the subset of the app-user repository the pipeline needs.
type UserStore interface {
	GetAppUserByUsername(ctx context.Context, applicationID, username string) (*models.AppUser, error)
	GetAppUserByID(ctx context.Context, id string) (*models.AppUser, error)
	CreateAppUser(ctx context.Context, u *models.AppUser) error
	IncrementLoginAttempts(ctx context.Context, id string) error
	RecordSuccessfulLogin(ctx context.Context, id string) error
	BindHWID(ctx context.Context, id, hwid string) (bool, error)
}

// BlacklistStore looks up active block rules, application-scoped or global.
type BlacklistStore interface {
	FindActiveEntry(ctx context.Context, applicationID, entryType, value string) (*models.BlacklistEntry, error)
}

// Messages for rejection kinds that have no owner-configurable template.
const (
	msgBlacklisted  = "Access denied"
	msgHWIDRequired = "A hardware ID is required to log in to this application"
)

// LoginRequest carries one login attempt's inputs. IPAddress and UserAgent
// come from the transport layer and feed the activity log.
type LoginRequest struct {
	Username  string
	Password  string
	Version   string
	HWID      string
	IPAddress string
	UserAgent string
}

// RegisterRequest carries one register call's inputs.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	HWID      string
	ExpiresAt *time.Time
	IPAddress string
	UserAgent string
}

// Pipeline evaluates login, register, and verify requests for one resolved
// application. It never retries a rejected check; rejections are final per
// request, and every terminal outcome is reported to the recorder.
type Pipeline struct {
	users     UserStore
	blacklist BlacklistStore
	recorder  notify.Recorder
	hwidLock  *HWIDLock
	now       func() time.Time
}

// NewPipeline creates a Pipeline over the given stores and recorder.
func NewPipeline(users UserStore, blacklist BlacklistStore, recorder notify.Recorder) *Pipeline {
	return &Pipeline{
		users:     users,
		blacklist: blacklist,
		recorder:  recorder,
		hwidLock:  NewHWIDLock(users),
		now:       time.Now,
	}
}

// Login runs the ordered checks for one attempt against an already-resolved,
// active application. A returned error means an internal failure (store
// unreachable); every authorization decision comes back as a LoginResult.
func (p *Pipeline) Login(ctx context.Context, app *models.Application, req LoginRequest) (*LoginResult, error) {
	// Blacklists run before anything touches per-user state so operators can
	// blanket-block abusive sources.
	if req.IPAddress != "" {
		entry, err := p.blacklist.FindActiveEntry(ctx, app.ID, models.BlacklistTypeIP, req.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("blacklist lookup failed: %w", err)
		}
		if entry != nil {
			return p.reject(ctx, app, nil, req, RejectBlacklistedIP, msgBlacklisted, blacklistMetadata(entry)), nil
		}
	}

	entry, err := p.blacklist.FindActiveEntry(ctx, app.ID, models.BlacklistTypeUsername, req.Username)
	if err != nil {
		return nil, fmt.Errorf("blacklist lookup failed: %w", err)
	}
	if entry != nil {
		return p.reject(ctx, app, nil, req, RejectBlacklistedUsername, msgBlacklisted, blacklistMetadata(entry)), nil
	}

	if req.HWID != "" {
		entry, err = p.blacklist.FindActiveEntry(ctx, app.ID, models.BlacklistTypeHWID, req.HWID)
		if err != nil {
			return nil, fmt.Errorf("blacklist lookup failed: %w", err)
		}
		if entry != nil {
			return p.reject(ctx, app, nil, req, RejectBlacklistedHWID, msgBlacklisted, blacklistMetadata(entry)), nil
		}
	}

	// Version runs before credentials so out-of-date clients learn to upgrade
	// without revealing whether the username exists.
	if req.Version != "" && app.RequiredVersion != nil && *app.RequiredVersion != "" {
		if !validation.VersionMatches(req.Version, *app.RequiredVersion) {
			res := p.reject(ctx, app, nil, req, RejectVersionMismatch, app.Messages.VersionMismatch, map[string]interface{}{
				"required_version": *app.RequiredVersion,
				"current_version":  req.Version,
			})
			res.RequiredVersion = *app.RequiredVersion
			res.CurrentVersion = req.Version
			return res, nil
		}
	}

	user, err := p.users.GetAppUserByUsername(ctx, app.ID, req.Username)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if user == nil {
		// Same message as a wrong password, and no activity event, so the
		// response and audit trail cannot be used to enumerate usernames.
		telemetry.LoginOutcomesTotal.WithLabelValues(string(RejectInvalidCredentials)).Inc()
		return &LoginResult{Reject: RejectInvalidCredentials, Message: app.Messages.LoginFailed}, nil
	}

	if !user.IsActive {
		return p.reject(ctx, app, user, req, RejectAccountDisabled, app.Messages.Disabled, nil), nil
	}
	if user.IsPaused {
		return p.reject(ctx, app, user, req, RejectAccountPaused, app.Messages.Paused, nil), nil
	}
	if user.IsExpired(p.now()) {
		return p.reject(ctx, app, user, req, RejectAccountExpired, app.Messages.Expired, nil), nil
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		// The counter increment precedes the HWID check: failed passwords
		// count even when the HWID would have matched.
		if err := p.users.IncrementLoginAttempts(ctx, user.ID); err != nil {
			slog.Warn("failed to increment login attempts", "user_id", user.ID, "error", err)
		}
		return p.reject(ctx, app, user, req, RejectInvalidCredentials, app.Messages.LoginFailed, nil), nil
	}

	hwidLocked := user.HWIDBound()
	if app.HWIDLockEnabled {
		status, err := p.hwidLock.Check(ctx, user, req.HWID)
		if err != nil {
			return nil, err
		}
		switch status {
		case HWIDRequired:
			return p.reject(ctx, app, user, req, RejectHWIDRequired, msgHWIDRequired, nil), nil
		case HWIDMismatch:
			return p.reject(ctx, app, user, req, RejectHWIDMismatch, app.Messages.HWIDMismatch, nil), nil
		case HWIDBound:
			hwidLocked = true
		}
	}

	if err := p.users.RecordSuccessfulLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LoginAttempts = 0

	telemetry.LoginOutcomesTotal.WithLabelValues("success").Inc()
	p.recorder.Record(ctx, notify.Event{
		Name:        notify.EventUserLogin,
		Application: app,
		User:        user,
		Success:     true,
		IPAddress:   req.IPAddress,
		HWID:        req.HWID,
		UserAgent:   req.UserAgent,
	})

	return &LoginResult{
		Success:    true,
		Message:    app.Messages.LoginSuccess,
		User:       user,
		HWIDLocked: hwidLocked,
	}, nil
}

// reject builds a rejection result and reports it. The recorder write is
// best-effort relative to the already-computed decision.
func (p *Pipeline) reject(ctx context.Context, app *models.Application, user *models.AppUser, req LoginRequest, kind RejectKind, message string, metadata map[string]interface{}) *LoginResult {
	telemetry.LoginOutcomesTotal.WithLabelValues(string(kind)).Inc()

	if event := kind.EventName(); event != "" {
		p.recorder.Record(ctx, notify.Event{
			Name:         event,
			Application:  app,
			User:         user,
			Success:      false,
			ErrorMessage: message,
			IPAddress:    req.IPAddress,
			HWID:         req.HWID,
			UserAgent:    req.UserAgent,
			Metadata:     metadata,
		})
	}

	return &LoginResult{Reject: kind, Message: message}
}

func blacklistMetadata(entry *models.BlacklistEntry) map[string]interface{} {
	scope := "application"
	if entry.IsGlobal() {
		scope = "global"
	}
	return map[string]interface{}{
		"blacklist_type": entry.Type,
		"scope":          scope,
	}
}

// Register creates an end-user account via the public API. Validation and
// duplicate failures come back as an unsuccessful result; only store errors
// are returned as errors.
func (p *Pipeline) Register(ctx context.Context, app *models.Application, req RegisterRequest) (*RegisterResult, error) {
	if err := validation.ValidateUsername(req.Username); err != nil {
		return &RegisterResult{Message: err.Error()}, nil
	}
	if req.Email != "" {
		if err := validation.ValidateEmail(req.Email); err != nil {
			return &RegisterResult{Message: err.Error()}, nil
		}
	}
	if req.HWID != "" {
		if err := validation.ValidateHWID(req.HWID); err != nil {
			return &RegisterResult{Message: err.Error()}, nil
		}
	}

	existing, err := p.users.GetAppUserByUsername(ctx, app.ID, req.Username)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if existing != nil {
		return &RegisterResult{Message: "username is already taken"}, nil
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return &RegisterResult{Message: err.Error()}, nil
	}

	user := &models.AppUser{
		ApplicationID: app.ID,
		Username:      req.Username,
		PasswordHash:  hash,
		ExpiresAt:     req.ExpiresAt,
		IsActive:      true,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if req.HWID != "" {
		user.HWID = &req.HWID
	}

	if err := p.users.CreateAppUser(ctx, user); err != nil {
		// Covers the race where two registers pass the lookup above, and
		// duplicate emails, which the lookup does not check.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return &RegisterResult{Message: "username or email is already registered"}, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	p.recorder.Record(ctx, notify.Event{
		Name:        notify.EventUserRegister,
		Application: app,
		User:        user,
		Success:     true,
		IPAddress:   req.IPAddress,
		HWID:        req.HWID,
		UserAgent:   req.UserAgent,
	})

	return &RegisterResult{Success: true, Message: "Account created", User: user}, nil
}

// Verify checks that an account exists, is active, and has not expired. It is
// narrower than login on purpose: no HWID or paused checks, no counters, no
// events, so clients can poll it as a cheap session liveness probe.
func (p *Pipeline) Verify(ctx context.Context, app *models.Application, userID string) (*VerifyResult, error) {
	user, err := p.users.GetAppUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if user == nil || user.ApplicationID != app.ID {
		return &VerifyResult{NotFound: true, Message: "User not found"}, nil
	}
	if !user.IsActive {
		return &VerifyResult{Message: app.Messages.Disabled, User: user}, nil
	}
	if user.IsExpired(p.now()) {
		return &VerifyResult{Message: app.Messages.Expired, User: user}, nil
	}
	return &VerifyResult{Success: true, Message: "Session valid", User: user}, nil
}
