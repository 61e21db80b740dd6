// account_expiry_notifier.go implements the AccountExpiryNotifier background
// job, which periodically scans for end-user accounts approaching their
// expires_at date and emits an account_expiring event for each one. The event
// flows through the normal notifier, so it lands in the activity log and
// reaches any webhook subscribed to it. Notification state is persisted in the
// database (expiry_notified_at column) so each account is warned exactly once
// per expiry date, even across server restarts.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/notify"
)

// ExpiringAccountStore is the subset of the app-user repository the sweep needs.
type ExpiringAccountStore interface {
	ListExpiringAppUsers(ctx context.Context, within time.Duration) ([]*models.AppUser, error)
	MarkExpiryNotified(ctx context.Context, id string) error
}

// ApplicationGetter resolves the application an expiring account belongs to.
type ApplicationGetter interface {
	GetApplicationByID(ctx context.Context, id string) (*models.Application, error)
}

// AccountExpiryNotifier periodically emits account_expiring events for
// accounts whose subscription is about to end.
type AccountExpiryNotifier struct {
	users    ExpiringAccountStore
	apps     ApplicationGetter
	recorder notify.Recorder
	window   time.Duration
	interval time.Duration
	stopChan chan struct{}
}

// NewAccountExpiryNotifier creates a new AccountExpiryNotifier.
// cfg.AccountExpiryCheckIntervalHours controls how often the sweep runs
// (default 24h); cfg.AccountExpiryWarningDays controls how far ahead of
// expires_at the warning fires (default 3 days).
func NewAccountExpiryNotifier(
	users ExpiringAccountStore,
	apps ApplicationGetter,
	recorder notify.Recorder,
	cfg *config.NotificationsConfig,
) *AccountExpiryNotifier {
	hours := cfg.AccountExpiryCheckIntervalHours
	if hours <= 0 {
		hours = 24
	}
	days := cfg.AccountExpiryWarningDays
	if days <= 0 {
		days = 3
	}
	return &AccountExpiryNotifier{
		users:    users,
		apps:     apps,
		recorder: recorder,
		window:   time.Duration(days) * 24 * time.Hour,
		interval: time.Duration(hours) * time.Hour,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background expiry-notification loop.
// It runs an initial sweep immediately, then repeats on the configured
// interval. The loop exits when ctx is cancelled or Stop() is called.
func (n *AccountExpiryNotifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Printf("Account expiry notifier started (check interval: %v, warning window: %v)",
		n.interval, n.window)

	// Run once immediately on startup
	n.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			n.runSweep(ctx)
		case <-n.stopChan:
			log.Println("Account expiry notifier stopped")
			return
		case <-ctx.Done():
			log.Println("Account expiry notifier stopped (context cancelled)")
			return
		}
	}
}

// Stop signals the notification loop to exit.
func (n *AccountExpiryNotifier) Stop() {
	close(n.stopChan)
}

// runSweep performs a single pass: load accounts inside the warning window,
// emit one event per account, then mark each as notified.
func (n *AccountExpiryNotifier) runSweep(ctx context.Context) {
	users, err := n.users.ListExpiringAppUsers(ctx, n.window)
	if err != nil {
		log.Printf("Account expiry sweep: failed to list expiring accounts: %v", err)
		return
	}
	if len(users) == 0 {
		return
	}

	// Applications repeat across users of the same app; cache lookups per sweep.
	appCache := make(map[string]*models.Application)

	notified := 0
	for _, u := range users {
		app, ok := appCache[u.ApplicationID]
		if !ok {
			app, err = n.apps.GetApplicationByID(ctx, u.ApplicationID)
			if err != nil {
				log.Printf("Account expiry sweep: failed to load application %s: %v", u.ApplicationID, err)
				continue
			}
			if app == nil {
				// Application deleted between the list query and now.
				continue
			}
			appCache[u.ApplicationID] = app
		}

		n.recorder.Record(ctx, notify.Event{
			Name:        notify.EventAccountExpiring,
			Application: app,
			User:        u,
			Success:     true,
			Metadata: map[string]interface{}{
				"expires_at": u.ExpiresAt.UTC().Format(time.RFC3339),
			},
		})

		if err := n.users.MarkExpiryNotified(ctx, u.ID); err != nil {
			// The account will be swept again next interval; owners may see
			// a duplicate warning, which beats a missed one.
			log.Printf("Account expiry sweep: failed to mark account %s notified: %v", u.ID, err)
			continue
		}
		notified++
	}

	if notified > 0 {
		log.Printf("Account expiry sweep: emitted %d expiry warning(s)", notified)
	}
}
