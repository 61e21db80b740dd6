package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/notify"
)

type fakeExpiringStore struct {
	users    []*models.AppUser
	listErr  error
	markErr  error
	notified []string
}

func (f *fakeExpiringStore) ListExpiringAppUsers(_ context.Context, _ time.Duration) ([]*models.AppUser, error) {
	return f.users, f.listErr
}

func (f *fakeExpiringStore) MarkExpiryNotified(_ context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.notified = append(f.notified, id)
	return nil
}

type fakeAppGetter struct {
	apps  map[string]*models.Application
	calls int
}

func (f *fakeAppGetter) GetApplicationByID(_ context.Context, id string) (*models.Application, error) {
	f.calls++
	return f.apps[id], nil
}

type recorderSpy struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorderSpy) Record(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorderSpy) recorded() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

func expiringUser(id, appID string, in time.Duration) *models.AppUser {
	exp := time.Now().Add(in)
	return &models.AppUser{
		ID:            id,
		ApplicationID: appID,
		Username:      "user-" + id,
		ExpiresAt:     &exp,
		IsActive:      true,
	}
}

func newSweepNotifier(store *fakeExpiringStore, apps *fakeAppGetter, spy *recorderSpy) *AccountExpiryNotifier {
	return NewAccountExpiryNotifier(store, apps, spy, &config.NotificationsConfig{
		AccountExpiryEnabled:            true,
		AccountExpiryWarningDays:        3,
		AccountExpiryCheckIntervalHours: 24,
	})
}

func TestRunSweep_EmitsEventAndMarksNotified(t *testing.T) {
	store := &fakeExpiringStore{users: []*models.AppUser{expiringUser("u1", "app-1", 48*time.Hour)}}
	apps := &fakeAppGetter{apps: map[string]*models.Application{
		"app-1": {ID: "app-1", OwnerID: "owner-1", Name: "My App"},
	}}
	spy := &recorderSpy{}

	n := newSweepNotifier(store, apps, spy)
	n.runSweep(context.Background())

	events := spy.recorded()
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, notify.EventAccountExpiring, ev.Name)
	assert.True(t, ev.Success, "expiry warning should be recorded as success")
	assert.Equal(t, "app-1", ev.Application.ID)
	assert.Equal(t, "u1", ev.User.ID)
	assert.Contains(t, ev.Metadata, "expires_at")

	assert.Equal(t, []string{"u1"}, store.notified)
}

func TestRunSweep_CachesApplicationLookups(t *testing.T) {
	store := &fakeExpiringStore{users: []*models.AppUser{
		expiringUser("u1", "app-1", 24*time.Hour),
		expiringUser("u2", "app-1", 48*time.Hour),
	}}
	apps := &fakeAppGetter{apps: map[string]*models.Application{
		"app-1": {ID: "app-1", OwnerID: "owner-1"},
	}}
	spy := &recorderSpy{}

	newSweepNotifier(store, apps, spy).runSweep(context.Background())

	assert.Equal(t, 1, apps.calls, "application should be loaded once per sweep")
	assert.Len(t, spy.recorded(), 2)
}

func TestRunSweep_SkipsDeletedApplication(t *testing.T) {
	store := &fakeExpiringStore{users: []*models.AppUser{expiringUser("u1", "gone", 24*time.Hour)}}
	apps := &fakeAppGetter{apps: map[string]*models.Application{}}
	spy := &recorderSpy{}

	newSweepNotifier(store, apps, spy).runSweep(context.Background())

	assert.Empty(t, spy.recorded(), "no event should be emitted for a deleted application")
	assert.Empty(t, store.notified, "account must not be marked notified when no event was emitted")
}

func TestRunSweep_ListErrorEmitsNothing(t *testing.T) {
	store := &fakeExpiringStore{listErr: errors.New("db down")}
	spy := &recorderSpy{}

	newSweepNotifier(store, &fakeAppGetter{}, spy).runSweep(context.Background())

	assert.Empty(t, spy.recorded())
}

func TestRunSweep_MarkErrorStillEmits(t *testing.T) {
	// A failed marker write means the account is swept again next interval;
	// the warning itself must still go out.
	store := &fakeExpiringStore{
		users:   []*models.AppUser{expiringUser("u1", "app-1", 24*time.Hour)},
		markErr: errors.New("write failed"),
	}
	apps := &fakeAppGetter{apps: map[string]*models.Application{
		"app-1": {ID: "app-1", OwnerID: "owner-1"},
	}}
	spy := &recorderSpy{}

	newSweepNotifier(store, apps, spy).runSweep(context.Background())

	assert.Len(t, spy.recorded(), 1, "event must still be emitted when the marker write fails")
}

func TestStartStop(t *testing.T) {
	n := newSweepNotifier(&fakeExpiringStore{}, &fakeAppGetter{}, &recorderSpy{})

	done := make(chan struct{})
	go func() {
		n.Start(context.Background())
		close(done)
	}()

	n.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestStartContextCancel(t *testing.T) {
	n := newSweepNotifier(&fakeExpiringStore{}, &fakeAppGetter{}, &recorderSpy{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
