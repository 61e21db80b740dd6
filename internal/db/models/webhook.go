// Package models - webhook.go defines the Webhook model for owner-configured
// HTTP endpoints subscribed to named security events.
package models

import (
	"net/url"
	"strings"
	"time"
)

// Webhook represents an owner-configured external notification endpoint.
// Events is the set of event names the endpoint is subscribed to; deliveries
// only happen for subscribed events and only while the webhook is active.
type Webhook struct {
	ID        string
	OwnerID   string
	Name      string
	URL       string
	Secret    *string  // When set (and the target is not Discord), payloads are HMAC-signed
	Events    []string // JSONB array of subscribed event names
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscribedTo reports whether the webhook is subscribed to the named event.
func (w *Webhook) SubscribedTo(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// IsDiscord reports whether the webhook targets a Discord webhook endpoint.
// Discord endpoints receive Discord's embed payload schema instead of the
// standard JSON body and never get signature headers.
func (w *Webhook) IsDiscord() bool {
	u, err := url.Parse(w.URL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host != "discord.com" && host != "discordapp.com" && !strings.HasSuffix(host, ".discord.com") {
		return false
	}
	return strings.Contains(u.Path, "/webhooks/")
}
