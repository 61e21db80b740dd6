// payload.go builds the outbound JSON bodies: the standard webhook payload,
// and Discord's embed schema for webhook URLs pointing at Discord.
package notify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/keyforge/keyforge/internal/db/models"
)

// Payload is the standard webhook body.
type Payload struct {
	Event         string                 `json:"event"`
	Timestamp     time.Time              `json:"timestamp"`
	ApplicationID string                 `json:"application_id"`
	UserData      *UserData              `json:"user_data,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Success       bool                   `json:"success"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
}

// UserData is the account section of a payload, present when the event
// resolved a user.
type UserData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	HWID     string `json:"hwid,omitempty"`
}

func buildPayload(ev Event, now time.Time) *Payload {
	p := &Payload{
		Event:         ev.Name,
		Timestamp:     now.UTC(),
		ApplicationID: ev.Application.ID,
		Metadata:      ev.Metadata,
		Success:       ev.Success,
		ErrorMessage:  ev.ErrorMessage,
	}
	if ev.User != nil {
		ud := &UserData{
			UserID:   ev.User.ID,
			Username: ev.User.Username,
		}
		if ev.User.Email != nil {
			ud.Email = *ev.User.Email
		}
		if ev.User.HWID != nil {
			ud.HWID = *ev.User.HWID
		}
		p.UserData = ud
	}
	return p
}

// Discord embed colors
const (
	discordColorSuccess = 0x2ECC71
	discordColorFailure = 0xE74C3C
)

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func buildDiscordPayload(ev Event, appName string, now time.Time) *discordPayload {
	color := discordColorFailure
	if ev.Success {
		color = discordColorSuccess
	}

	embed := discordEmbed{
		Title:     eventTitle(ev.Name),
		Color:     color,
		Timestamp: now.UTC().Format(time.RFC3339),
	}

	addField := func(name, value string, inline bool) {
		if value != "" {
			embed.Fields = append(embed.Fields, discordField{Name: name, Value: value, Inline: inline})
		}
	}
	addField("Application", appName, true)
	if ev.User != nil {
		addField("User", ev.User.Username, true)
	}
	addField("IP Address", ev.IPAddress, true)
	addField("HWID", ev.HWID, false)
	addField("Details", ev.ErrorMessage, false)

	return &discordPayload{Embeds: []discordEmbed{embed}}
}

// eventTitle turns an event name into a human-readable embed title,
// e.g. "login_blocked_ip" -> "Login Blocked Ip".
func eventTitle(event string) string {
	words := strings.Split(event, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// marshalBody encodes the payload appropriate for the webhook's destination.
func marshalBody(w *models.Webhook, ev Event, now time.Time) ([]byte, error) {
	if w.IsDiscord() {
		return json.Marshal(buildDiscordPayload(ev, ev.Application.Name, now))
	}
	return json.Marshal(buildPayload(ev, now))
}
