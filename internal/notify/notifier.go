// notifier.go co-invokes the notifier's two duties per event: the synchronous
// activity-log append and the backgrounded webhook dispatch. An activity write
// failure is swallowed (counted, logged) and can never change the
// authorization decision already computed.
package notify

import (
	"context"
	"log/slog"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/safego"
	"github.com/keyforge/keyforge/internal/telemetry"
)

// ActivityStore is the subset of the activity repository the notifier needs.
type ActivityStore interface {
	CreateActivityLog(ctx context.Context, log *models.ActivityLog) error
}

// WebhookStore lists the active webhooks configured by an owner.
type WebhookStore interface {
	ListActiveWebhooksByOwner(ctx context.Context, ownerID string) ([]*models.Webhook, error)
}

// Notifier records events as activity logs and fans them out to subscribed
// webhooks. Webhook dispatch runs on a background goroutine so third-party
// endpoint latency never couples to the request that triggered the event.
type Notifier struct {
	activity   ActivityStore
	webhooks   WebhookStore
	dispatcher *Dispatcher
}

// NewNotifier creates a Notifier with a dispatcher tuned by cfg.
func NewNotifier(activity ActivityStore, webhooks WebhookStore, cfg config.WebhooksConfig) *Notifier {
	return &Notifier{
		activity:   activity,
		webhooks:   webhooks,
		dispatcher: NewDispatcher(cfg),
	}
}

// Record implements Recorder. The activity write happens on the caller's
// goroutine; webhook delivery is fire-and-forget.
func (n *Notifier) Record(ctx context.Context, ev Event) {
	n.writeActivity(ctx, ev)
	safego.Go(func() {
		// Deliberately not the request context: the login response has
		// already been decided and deliveries outlive the request.
		n.dispatch(context.Background(), ev)
	})
}

func (n *Notifier) writeActivity(ctx context.Context, ev Event) {
	entry := &models.ActivityLog{
		ApplicationID: ev.Application.ID,
		Event:         ev.Name,
		Success:       ev.Success,
		Metadata:      ev.Metadata,
	}
	if ev.User != nil {
		entry.AppUserID = &ev.User.ID
	}
	if ev.ErrorMessage != "" {
		entry.ErrorMessage = &ev.ErrorMessage
	}
	if ev.IPAddress != "" {
		entry.IPAddress = &ev.IPAddress
	}
	if ev.HWID != "" {
		entry.HWID = &ev.HWID
	}
	if ev.UserAgent != "" {
		entry.UserAgent = &ev.UserAgent
	}

	if err := n.activity.CreateActivityLog(ctx, entry); err != nil {
		telemetry.ActivityLogWriteFailuresTotal.Inc()
		slog.Error("failed to write activity log",
			"event", ev.Name,
			"application_id", ev.Application.ID,
			"error", err)
	}
}

// dispatch loads the owner's active webhooks and delivers the event to every
// one subscribed to it, sequentially.
func (n *Notifier) dispatch(ctx context.Context, ev Event) {
	hooks, err := n.webhooks.ListActiveWebhooksByOwner(ctx, ev.Application.OwnerID)
	if err != nil {
		slog.Error("failed to list webhooks for event",
			"event", ev.Name,
			"owner_id", ev.Application.OwnerID,
			"error", err)
		return
	}

	var subscribed []*models.Webhook
	for _, h := range hooks {
		if h.SubscribedTo(ev.Name) {
			subscribed = append(subscribed, h)
		}
	}
	if len(subscribed) == 0 {
		return
	}

	n.dispatcher.DeliverAll(ctx, subscribed, ev)
}
