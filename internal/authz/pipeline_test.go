package authz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/keyforge/keyforge/internal/auth"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/notify"
)

// memUserStore is an in-memory UserStore for exercising the pipeline without
// a database.
type memUserStore struct {
	users  map[string]*models.AppUser
	nextID int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.AppUser)}
}

func (s *memUserStore) add(u *models.AppUser) *models.AppUser {
	if u.ID == "" {
		s.nextID++
		u.ID = fmt.Sprintf("user-%d", s.nextID)
	}
	s.users[u.ID] = u
	return u
}

func (s *memUserStore) GetAppUserByUsername(_ context.Context, applicationID, username string) (*models.AppUser, error) {
	for _, u := range s.users {
		if u.ApplicationID == applicationID && u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) GetAppUserByID(_ context.Context, id string) (*models.AppUser, error) {
	return s.users[id], nil
}

func (s *memUserStore) CreateAppUser(_ context.Context, u *models.AppUser) error {
	s.add(u)
	return nil
}

func (s *memUserStore) IncrementLoginAttempts(_ context.Context, id string) error {
	u := s.users[id]
	u.LoginAttempts++
	now := time.Now()
	u.LastAttempt = &now
	return nil
}

func (s *memUserStore) RecordSuccessfulLogin(_ context.Context, id string) error {
	u := s.users[id]
	u.LoginAttempts = 0
	now := time.Now()
	u.LastLogin = &now
	u.LastAttempt = &now
	return nil
}

func (s *memUserStore) BindHWID(_ context.Context, id, hwid string) (bool, error) {
	u := s.users[id]
	if u.HWID != nil {
		return false, nil
	}
	u.HWID = &hwid
	return true, nil
}

type memBlacklist struct {
	entries []*models.BlacklistEntry
}

func (s *memBlacklist) FindActiveEntry(_ context.Context, applicationID, entryType, value string) (*models.BlacklistEntry, error) {
	for _, e := range s.entries {
		if !e.IsActive || e.Type != entryType || e.Value != value {
			continue
		}
		if e.IsGlobal() || *e.ApplicationID == applicationID {
			return e, nil
		}
	}
	return nil, nil
}

// recorderSpy captures every event the pipeline reports.
type recorderSpy struct {
	events []notify.Event
}

func (r *recorderSpy) Record(_ context.Context, ev notify.Event) {
	r.events = append(r.events, ev)
}

func (r *recorderSpy) names() []string {
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Name)
	}
	return out
}

func testApp() *models.Application {
	return &models.Application{
		ID:       "app-1",
		OwnerID:  "owner-1",
		APIKey:   "kf_testkey",
		IsActive: true,
		Messages: models.MessageTemplates{
			LoginSuccess:    "Login successful",
			LoginFailed:     "Invalid username or password",
			Disabled:        "Your account has been disabled",
			Expired:         "Your subscription has expired",
			Paused:          "Your account is paused",
			VersionMismatch: "Please update to the latest version",
			HWIDMismatch:    "Login from an unrecognized device",
		},
	}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

type env struct {
	users     *memUserStore
	blacklist *memBlacklist
	recorder  *recorderSpy
	pipeline  *Pipeline
}

func newEnv(t *testing.T) *env {
	t.Helper()
	users := newMemUserStore()
	blacklist := &memBlacklist{}
	recorder := &recorderSpy{}
	return &env{
		users:     users,
		blacklist: blacklist,
		recorder:  recorder,
		pipeline:  NewPipeline(users, blacklist, recorder),
	}
}

func (e *env) addUser(t *testing.T, app *models.Application, username, password string) *models.AppUser {
	t.Helper()
	return e.users.add(&models.AppUser{
		ApplicationID: app.ID,
		Username:      username,
		PasswordHash:  mustHash(t, password),
		IsActive:      true,
	})
}

func login(t *testing.T, e *env, app *models.Application, req LoginRequest) *LoginResult {
	t.Helper()
	res, err := e.pipeline.Login(context.Background(), app, req)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	return res
}

func TestLogin_Success(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	e.addUser(t, app, "alice", "secret123")

	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", IPAddress: "1.2.3.4"})
	if !res.Success {
		t.Fatalf("expected success, got reject %s: %s", res.Reject, res.Message)
	}
	if res.Message != "Login successful" {
		t.Errorf("message = %q", res.Message)
	}
	if res.User == nil || res.User.Username != "alice" {
		t.Errorf("result is missing the user")
	}

	if got := e.recorder.names(); len(got) != 1 || got[0] != notify.EventUserLogin {
		t.Errorf("events = %v, want [user_login]", got)
	}
	if !e.recorder.events[0].Success {
		t.Error("success event should have Success=true")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	u := e.addUser(t, app, "alice", "secret123")

	res := login(t, e, app, LoginRequest{Username: "alice", Password: "wrong"})
	if res.Success || res.Reject != RejectInvalidCredentials {
		t.Fatalf("expected invalid_credentials, got %+v", res)
	}
	if res.Message != "Invalid username or password" {
		t.Errorf("message = %q", res.Message)
	}
	if u.LoginAttempts != 1 {
		t.Errorf("login attempts = %d, want 1", u.LoginAttempts)
	}
	if got := e.recorder.names(); len(got) != 1 || got[0] != notify.EventLoginFailed {
		t.Errorf("events = %v, want [login_failed]", got)
	}
}

func TestLogin_UnknownUser_SameMessageNoEvent(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	e.addUser(t, app, "alice", "secret123")

	res := login(t, e, app, LoginRequest{Username: "mallory", Password: "whatever"})
	if res.Success || res.Reject != RejectInvalidCredentials {
		t.Fatalf("expected invalid_credentials, got %+v", res)
	}
	// Unknown usernames must be indistinguishable from wrong passwords in the
	// response, and must leave no audit trail to enumerate against.
	if res.Message != "Invalid username or password" {
		t.Errorf("message = %q", res.Message)
	}
	if len(e.recorder.events) != 0 {
		t.Errorf("expected no events, got %v", e.recorder.names())
	}
}

func TestLogin_AttemptCounterMonotonic(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	u := e.addUser(t, app, "alice", "secret123")

	for i := 1; i <= 3; i++ {
		res := login(t, e, app, LoginRequest{Username: "alice", Password: "wrong"})
		if res.Success {
			t.Fatal("wrong password should not succeed")
		}
		if u.LoginAttempts != i {
			t.Fatalf("after %d failures, counter = %d", i, u.LoginAttempts)
		}
	}

	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123"})
	if !res.Success {
		t.Fatalf("correct password rejected: %s", res.Message)
	}
	if u.LoginAttempts != 0 {
		t.Errorf("counter = %d after successful login, want 0", u.LoginAttempts)
	}
}

func TestLogin_BlacklistChecksRunBeforePassword(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	u := e.addUser(t, app, "bob", "secret123")
	scope := app.ID
	e.blacklist.entries = append(e.blacklist.entries, &models.BlacklistEntry{
		ApplicationID: &scope, Type: models.BlacklistTypeUsername, Value: "bob", IsActive: true,
	})

	res := login(t, e, app, LoginRequest{Username: "bob", Password: "wrong", IPAddress: "1.2.3.4"})
	if res.Reject != RejectBlacklistedUsername {
		t.Fatalf("expected blacklisted_username, got %+v", res)
	}
	// Counter untouched proves no password comparison happened.
	if u.LoginAttempts != 0 {
		t.Errorf("counter = %d, want 0", u.LoginAttempts)
	}
	if got := e.recorder.names(); len(got) != 1 || got[0] != notify.EventLoginBlockedUsername {
		t.Errorf("events = %v, want [login_blocked_username]", got)
	}
}

func TestLogin_GlobalAndScopedBlacklist(t *testing.T) {
	e := newEnv(t)
	app1 := testApp()
	app2 := testApp()
	app2.ID = "app-2"
	e.addUser(t, app1, "bob", "secret123")
	e.addUser(t, app2, "bob", "secret123")

	// Global entry rejects bob everywhere.
	global := &models.BlacklistEntry{Type: models.BlacklistTypeUsername, Value: "bob", IsActive: true}
	e.blacklist.entries = []*models.BlacklistEntry{global}

	for _, app := range []*models.Application{app1, app2} {
		res := login(t, e, app, LoginRequest{Username: "bob", Password: "secret123"})
		if res.Reject != RejectBlacklistedUsername {
			t.Errorf("app %s: expected global rejection, got %+v", app.ID, res)
		}
	}

	// Scoped entry only rejects within its own application.
	scope := app1.ID
	e.blacklist.entries = []*models.BlacklistEntry{{
		ApplicationID: &scope, Type: models.BlacklistTypeUsername, Value: "bob", IsActive: true,
	}}

	if res := login(t, e, app1, LoginRequest{Username: "bob", Password: "secret123"}); res.Reject != RejectBlacklistedUsername {
		t.Errorf("scoped entry should reject in its own application, got %+v", res)
	}
	if res := login(t, e, app2, LoginRequest{Username: "bob", Password: "secret123"}); !res.Success {
		t.Errorf("scoped entry leaked into another application: %+v", res)
	}
}

func TestLogin_BlacklistedIP(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	e.addUser(t, app, "alice", "secret123")
	e.blacklist.entries = append(e.blacklist.entries, &models.BlacklistEntry{
		Type: models.BlacklistTypeIP, Value: "10.0.0.9", IsActive: true,
	})

	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", IPAddress: "10.0.0.9"})
	if res.Reject != RejectBlacklistedIP {
		t.Fatalf("expected blacklisted_ip, got %+v", res)
	}
	if got := e.recorder.names(); len(got) != 1 || got[0] != notify.EventLoginBlockedIP {
		t.Errorf("events = %v", got)
	}
}

func TestLogin_BlacklistedHWID(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	e.addUser(t, app, "alice", "secret123")
	e.blacklist.entries = append(e.blacklist.entries, &models.BlacklistEntry{
		Type: models.BlacklistTypeHWID, Value: "BAD-HWID", IsActive: true,
	})

	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", HWID: "BAD-HWID"})
	if res.Reject != RejectBlacklistedHWID {
		t.Fatalf("expected blacklisted_hwid, got %+v", res)
	}

	// Without a supplied HWID the check is skipped entirely.
	res = login(t, e, app, LoginRequest{Username: "alice", Password: "secret123"})
	if !res.Success {
		t.Errorf("login without hwid should succeed: %+v", res)
	}
}

func TestLogin_InactiveBlacklistEntryIgnored(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	e.addUser(t, app, "alice", "secret123")
	e.blacklist.entries = append(e.blacklist.entries, &models.BlacklistEntry{
		Type: models.BlacklistTypeUsername, Value: "alice", IsActive: false,
	})

	if res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123"}); !res.Success {
		t.Errorf("inactive entry should not reject: %+v", res)
	}
}

func TestLogin_VersionMismatch(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	required := "2.0.0"
	app.RequiredVersion = &required
	e.addUser(t, app, "alice", "secret123")

	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", Version: "1.0.0"})
	if res.Reject != RejectVersionMismatch {
		t.Fatalf("expected version_mismatch, got %+v", res)
	}
	if res.RequiredVersion != "2.0.0" || res.CurrentVersion != "1.0.0" {
		t.Errorf("version fields = %q/%q", res.RequiredVersion, res.CurrentVersion)
	}
	if got := e.recorder.names(); len(got) != 1 || got[0] != notify.EventLoginVersionMismatch {
		t.Errorf("events = %v", got)
	}

	// No version supplied skips the check.
	if res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123"}); !res.Success {
		t.Errorf("login without version should succeed: %+v", res)
	}
}

func TestLogin_AccountStateChecks(t *testing.T) {
	e := newEnv(t)
	_ = e
	app := testApp()
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		mutate     func(u *models.AppUser)
		wantReject RejectKind
		wantMsg    string
		wantEvent  string
	}{
		{"disabled", func(u *models.AppUser) { u.IsActive = false }, RejectAccountDisabled, "Your account has been disabled", notify.EventLoginAccountDisabled},
		{"paused", func(u *models.AppUser) { u.IsPaused = true }, RejectAccountPaused, "Your account is paused", notify.EventLoginAccountPaused},
		{"expired", func(u *models.AppUser) { u.ExpiresAt = &past }, RejectAccountExpired, "Your subscription has expired", notify.EventLoginAccountExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			u := e.addUser(t, app, "alice", "secret123")
			tt.mutate(u)

			res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123"})
			if res.Reject != tt.wantReject {
				t.Fatalf("reject = %s, want %s", res.Reject, tt.wantReject)
			}
			if res.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", res.Message, tt.wantMsg)
			}
			if got := e.recorder.names(); len(got) != 1 || got[0] != tt.wantEvent {
				t.Errorf("events = %v, want [%s]", got, tt.wantEvent)
			}
		})
	}
}

func TestLogin_HWIDFirstWriteWins(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	app.HWIDLockEnabled = true
	u := e.addUser(t, app, "alice", "secret123")

	// First HWID-checked login binds.
	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", HWID: "AAA"})
	if !res.Success {
		t.Fatalf("first login rejected: %+v", res)
	}
	if !res.HWIDLocked {
		t.Error("result should report the hwid as locked")
	}
	if u.HWID == nil || *u.HWID != "AAA" {
		t.Fatalf("stored hwid = %v, want AAA", u.HWID)
	}

	// A different device is rejected and the binding stays put.
	res = login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", HWID: "BBB"})
	if res.Reject != RejectHWIDMismatch {
		t.Fatalf("expected hwid_mismatch, got %+v", res)
	}
	if res.Message != "Login from an unrecognized device" {
		t.Errorf("message = %q", res.Message)
	}
	if *u.HWID != "AAA" {
		t.Errorf("stored hwid changed to %s", *u.HWID)
	}

	// The bound device keeps working.
	if res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", HWID: "AAA"}); !res.Success {
		t.Errorf("bound device rejected: %+v", res)
	}
}

func TestLogin_HWIDRequired(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	app.HWIDLockEnabled = true
	e.addUser(t, app, "alice", "secret123")

	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123"})
	if res.Reject != RejectHWIDRequired {
		t.Fatalf("expected hwid_required, got %+v", res)
	}
	if got := e.recorder.names(); len(got) != 1 || got[0] != notify.EventLoginHWIDRequired {
		t.Errorf("events = %v", got)
	}
}

func TestLogin_HWIDResetRebinds(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	app.HWIDLockEnabled = true
	u := e.addUser(t, app, "alice", "secret123")

	if res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", HWID: "AAA"}); !res.Success {
		t.Fatalf("first login rejected: %+v", res)
	}
	if res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", HWID: "BBB"}); res.Reject != RejectHWIDMismatch {
		t.Fatalf("expected hwid_mismatch, got %+v", res)
	}

	// Owner reset clears the binding; the next login rebinds.
	u.HWID = nil
	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", HWID: "BBB"})
	if !res.Success {
		t.Fatalf("login after reset rejected: %+v", res)
	}
	if u.HWID == nil || *u.HWID != "BBB" {
		t.Errorf("stored hwid = %v, want BBB", u.HWID)
	}
}

func TestLogin_WrongPasswordCountsBeforeHWID(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	app.HWIDLockEnabled = true
	u := e.addUser(t, app, "alice", "secret123")
	hwid := "AAA"
	u.HWID = &hwid

	res := login(t, e, app, LoginRequest{Username: "alice", Password: "wrong", HWID: "AAA"})
	if res.Reject != RejectInvalidCredentials {
		t.Fatalf("expected invalid_credentials, got %+v", res)
	}
	if u.LoginAttempts != 1 {
		t.Errorf("counter = %d, want 1 even under a matching hwid", u.LoginAttempts)
	}
}

func TestLogin_FullScenario(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	app.HWIDLockEnabled = true
	required := "2.0.0"
	app.RequiredVersion = &required
	u := e.addUser(t, app, "alice", "secret123")

	// (a) stale client
	res := login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", Version: "1.0.0", HWID: "AAA"})
	if res.Reject != RejectVersionMismatch {
		t.Fatalf("(a) got %+v", res)
	}

	// (b) wrong password
	res = login(t, e, app, LoginRequest{Username: "alice", Password: "wrong", Version: "2.0.0", HWID: "AAA"})
	if res.Reject != RejectInvalidCredentials {
		t.Fatalf("(b) got %+v", res)
	}
	if u.LoginAttempts != 1 {
		t.Fatalf("(b) counter = %d, want 1", u.LoginAttempts)
	}

	// (c) success binds AAA and resets the counter
	res = login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", Version: "2.0.0", HWID: "AAA"})
	if !res.Success {
		t.Fatalf("(c) got %+v", res)
	}
	if *u.HWID != "AAA" || u.LoginAttempts != 0 {
		t.Fatalf("(c) hwid=%v counter=%d", u.HWID, u.LoginAttempts)
	}

	// (d) other device rejected
	res = login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", Version: "2.0.0", HWID: "BBB"})
	if res.Reject != RejectHWIDMismatch {
		t.Fatalf("(d) got %+v", res)
	}

	// (e) owner reset, rebind to BBB
	u.HWID = nil
	res = login(t, e, app, LoginRequest{Username: "alice", Password: "secret123", Version: "2.0.0", HWID: "BBB"})
	if !res.Success {
		t.Fatalf("(e) got %+v", res)
	}
	if *u.HWID != "BBB" {
		t.Fatalf("(e) hwid = %s", *u.HWID)
	}
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	app := testApp()

	res, err := e.pipeline.Register(context.Background(), app, RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("register failed: %s", res.Message)
	}
	if res.User.PasswordHash == "secret123" {
		t.Error("password stored in plaintext")
	}
	if got := e.recorder.names(); len(got) != 1 || got[0] != notify.EventUserRegister {
		t.Errorf("events = %v, want [user_register]", got)
	}

	// Duplicate username.
	res, err = e.pipeline.Register(context.Background(), app, RegisterRequest{Username: "alice", Password: "other"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Success {
		t.Error("duplicate username should fail")
	}
}

func TestRegister_Validation(t *testing.T) {
	e := newEnv(t)
	app := testApp()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"short username", RegisterRequest{Username: "ab", Password: "secret123"}},
		{"bad email", RegisterRequest{Username: "alice", Email: "not-an-email", Password: "secret123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.pipeline.Register(context.Background(), app, tt.req)
			if err != nil {
				t.Fatalf("Register returned error: %v", err)
			}
			if res.Success {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestVerify(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	u := e.addUser(t, app, "alice", "secret123")

	res, err := e.pipeline.Verify(context.Background(), app, u.ID)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("verify failed: %s", res.Message)
	}

	// Idempotent: the same call returns the same answer.
	again, err := e.pipeline.Verify(context.Background(), app, u.ID)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !again.Success || again.Message != res.Message {
		t.Errorf("repeat verify diverged: %+v vs %+v", res, again)
	}

	// Verify ignores paused status and HWID state on purpose.
	u.IsPaused = true
	hwid := "AAA"
	u.HWID = &hwid
	if res, _ := e.pipeline.Verify(context.Background(), app, u.ID); !res.Success {
		t.Errorf("paused account should still verify: %+v", res)
	}

	u.IsActive = false
	if res, _ := e.pipeline.Verify(context.Background(), app, u.ID); res.Success {
		t.Error("disabled account should not verify")
	}
}

func TestVerify_NotFoundAndCrossApplication(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	other := testApp()
	other.ID = "app-2"
	u := e.addUser(t, other, "alice", "secret123")

	res, err := e.pipeline.Verify(context.Background(), app, "no-such-user")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !res.NotFound {
		t.Errorf("expected NotFound, got %+v", res)
	}

	// A user ID from another application looks exactly like a missing user.
	res, err = e.pipeline.Verify(context.Background(), app, u.ID)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !res.NotFound {
		t.Errorf("cross-application verify should be NotFound, got %+v", res)
	}
}

func TestVerify_Expired(t *testing.T) {
	e := newEnv(t)
	app := testApp()
	u := e.addUser(t, app, "alice", "secret123")
	past := time.Now().Add(-time.Minute)
	u.ExpiresAt = &past

	res, err := e.pipeline.Verify(context.Background(), app, u.ID)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if res.Success || res.NotFound {
		t.Errorf("expired account should fail verify without NotFound: %+v", res)
	}
}

func TestRejectKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind RejectKind
		want int
	}{
		{RejectInvalidAPIKey, 401},
		{RejectInvalidCredentials, 401},
		{RejectVersionMismatch, 400},
		{RejectBlacklistedIP, 403},
		{RejectAccountDisabled, 403},
		{RejectHWIDMismatch, 403},
	}
	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("%s status = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
