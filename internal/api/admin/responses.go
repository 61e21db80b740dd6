// responses.go maps database models to API response shapes. The model structs
// carry secrets (password hashes, webhook signing secrets) that must never be
// serialized, so handlers always go through these helpers instead of encoding
// models directly.
package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/db/models"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func ownerResponse(o *models.Owner) gin.H {
	return gin.H{
		"id":         o.ID,
		"email":      o.Email,
		"name":       o.Name,
		"created_at": formatTime(o.CreatedAt),
	}
}

// applicationResponse includes the full API key: the admin API is only
// reachable by the application's owner, and the dashboard needs the key to
// show setup instructions.
func applicationResponse(a *models.Application) gin.H {
	return gin.H{
		"id":                a.ID,
		"name":              a.Name,
		"api_key":           a.APIKey,
		"is_active":         a.IsActive,
		"required_version":  a.RequiredVersion,
		"hwid_lock_enabled": a.HWIDLockEnabled,
		"messages": gin.H{
			"login_success":    a.Messages.LoginSuccess,
			"login_failed":     a.Messages.LoginFailed,
			"disabled":         a.Messages.Disabled,
			"expired":          a.Messages.Expired,
			"paused":           a.Messages.Paused,
			"version_mismatch": a.Messages.VersionMismatch,
			"hwid_mismatch":    a.Messages.HWIDMismatch,
		},
		"created_at": formatTime(a.CreatedAt),
		"updated_at": formatTime(a.UpdatedAt),
	}
}

func appUserResponse(u *models.AppUser) gin.H {
	return gin.H{
		"id":             u.ID,
		"application_id": u.ApplicationID,
		"username":       u.Username,
		"email":          u.Email,
		"hwid":           u.HWID,
		"expires_at":     formatTimePtr(u.ExpiresAt),
		"is_active":      u.IsActive,
		"is_paused":      u.IsPaused,
		"login_attempts": u.LoginAttempts,
		"last_login":     formatTimePtr(u.LastLogin),
		"last_attempt":   formatTimePtr(u.LastAttempt),
		"created_at":     formatTime(u.CreatedAt),
		"updated_at":     formatTime(u.UpdatedAt),
	}
}

func blacklistEntryResponse(e *models.BlacklistEntry) gin.H {
	return gin.H{
		"id":             e.ID,
		"application_id": e.ApplicationID,
		"type":           e.Type,
		"value":          e.Value,
		"reason":         e.Reason,
		"is_active":      e.IsActive,
		"is_global":      e.IsGlobal(),
		"created_at":     formatTime(e.CreatedAt),
	}
}

// webhookResponse never returns the signing secret; has_secret tells the
// dashboard whether one is configured.
func webhookResponse(w *models.Webhook) gin.H {
	return gin.H{
		"id":         w.ID,
		"name":       w.Name,
		"url":        w.URL,
		"events":     w.Events,
		"is_active":  w.IsActive,
		"has_secret": w.Secret != nil && *w.Secret != "",
		"is_discord": w.IsDiscord(),
		"created_at": formatTime(w.CreatedAt),
		"updated_at": formatTime(w.UpdatedAt),
	}
}

func activityLogResponse(l *models.ActivityLog) gin.H {
	return gin.H{
		"id":            l.ID,
		"app_user_id":   l.AppUserID,
		"event":         l.Event,
		"success":       l.Success,
		"error_message": l.ErrorMessage,
		"ip_address":    l.IPAddress,
		"hwid":          l.HWID,
		"user_agent":    l.UserAgent,
		"metadata":      l.Metadata,
		"created_at":    formatTime(l.CreatedAt),
	}
}
