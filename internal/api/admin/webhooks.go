// webhooks.go implements webhook endpoint management. Webhooks belong to the
// owner, not to one application: a single endpoint receives events from every
// application the owner runs.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/db/repositories"
	"github.com/keyforge/keyforge/internal/middleware"
	"github.com/keyforge/keyforge/internal/notify"
)

// WebhookHandlers handles webhook management endpoints
type WebhookHandlers struct {
	cfg         *config.Config
	db          *sql.DB
	webhookRepo *repositories.WebhookRepository
	dispatcher  *notify.Dispatcher
}

// NewWebhookHandlers creates a new WebhookHandlers instance. The repository is
// injected rather than built here so the handlers share the notifier's
// instance, including its secret cipher when one is configured.
func NewWebhookHandlers(cfg *config.Config, db *sql.DB, webhookRepo *repositories.WebhookRepository) *WebhookHandlers {
	return &WebhookHandlers{
		cfg:         cfg,
		db:          db,
		webhookRepo: webhookRepo,
		dispatcher:  notify.NewDispatcher(cfg.Webhooks),
	}
}

type createWebhookRequest struct {
	Name   string   `json:"name" binding:"required"`
	URL    string   `json:"url" binding:"required"`
	Secret *string  `json:"secret"`
	Events []string `json:"events" binding:"required"`
}

type updateWebhookRequest struct {
	Name        *string  `json:"name"`
	URL         *string  `json:"url"`
	Secret      *string  `json:"secret"`
	ClearSecret bool     `json:"clear_secret"`
	Events      []string `json:"events"`
	IsActive    *bool    `json:"is_active"`
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be a valid http(s) URL")
	}
	return nil
}

func validateEvents(events []string) error {
	if len(events) == 0 {
		return fmt.Errorf("at least one event is required")
	}
	for _, e := range events {
		if !notify.ValidEvent(e) {
			return fmt.Errorf("unknown event %q; valid events: %s", e, strings.Join(notify.AllEvents(), ", "))
		}
	}
	return nil
}

// getOwnedWebhook resolves :id to a webhook belonging to the authenticated
// owner. On failure it writes the error response and returns nil.
func (h *WebhookHandlers) getOwnedWebhook(c *gin.Context) *models.Webhook {
	owner := middleware.OwnerFromContext(c)
	if owner == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Not authenticated",
		})
		return nil
	}

	hook, err := h.webhookRepo.GetWebhookByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
		return nil
	}
	if hook == nil || hook.OwnerID != owner.ID {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Webhook not found",
		})
		return nil
	}
	return hook
}

// ListWebhooksHandler lists the owner's webhooks
// GET /api/v1/admin/webhooks
func (h *WebhookHandlers) ListWebhooksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := middleware.OwnerFromContext(c)
		if owner == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authenticated",
			})
			return
		}

		hooks, err := h.webhookRepo.ListWebhooksByOwner(c.Request.Context(), owner.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to list webhooks",
			})
			return
		}

		out := make([]gin.H, 0, len(hooks))
		for _, w := range hooks {
			out = append(out, webhookResponse(w))
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"webhooks": out,
		})
	}
}

// CreateWebhookHandler registers a new webhook endpoint
// POST /api/v1/admin/webhooks
func (h *WebhookHandlers) CreateWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := middleware.OwnerFromContext(c)
		if owner == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authenticated",
			})
			return
		}

		var req createWebhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "name, url, and events are required",
			})
			return
		}
		if err := validateWebhookURL(req.URL); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}
		if err := validateEvents(req.Events); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}

		hook := &models.Webhook{
			OwnerID:  owner.ID,
			Name:     req.Name,
			URL:      req.URL,
			Secret:   req.Secret,
			Events:   req.Events,
			IsActive: true,
		}
		if err := h.webhookRepo.CreateWebhook(c.Request.Context(), hook); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to create webhook",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"webhook": webhookResponse(hook),
		})
	}
}

// GetWebhookHandler retrieves one webhook
// GET /api/v1/admin/webhooks/:id
func (h *WebhookHandlers) GetWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		hook := h.getOwnedWebhook(c)
		if hook == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"webhook": webhookResponse(hook),
		})
	}
}

// UpdateWebhookHandler applies a partial update to a webhook's configuration
// PUT /api/v1/admin/webhooks/:id
func (h *WebhookHandlers) UpdateWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		hook := h.getOwnedWebhook(c)
		if hook == nil {
			return
		}

		var req updateWebhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "invalid request body",
			})
			return
		}

		if req.Name != nil {
			hook.Name = *req.Name
		}
		if req.URL != nil {
			if err := validateWebhookURL(*req.URL); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": err.Error(),
				})
				return
			}
			hook.URL = *req.URL
		}
		if req.ClearSecret {
			hook.Secret = nil
		} else if req.Secret != nil {
			hook.Secret = req.Secret
		}
		if req.Events != nil {
			if err := validateEvents(req.Events); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": err.Error(),
				})
				return
			}
			hook.Events = req.Events
		}
		if req.IsActive != nil {
			hook.IsActive = *req.IsActive
		}

		if err := h.webhookRepo.UpdateWebhook(c.Request.Context(), hook); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to update webhook",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"webhook": webhookResponse(hook),
		})
	}
}

// TestWebhookHandler fires a synthetic event at the webhook and reports the
// delivery result synchronously, so owners can verify their endpoint, secret,
// and firewall setup before relying on real events.
// POST /api/v1/admin/webhooks/:id/test
func (h *WebhookHandlers) TestWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		hook := h.getOwnedWebhook(c)
		if hook == nil {
			return
		}

		eventName := notify.EventUserLogin
		if len(hook.Events) > 0 {
			eventName = hook.Events[0]
		}
		ev := notify.Event{
			Name:        eventName,
			Application: &models.Application{ID: "test", Name: "Webhook Test"},
			Success:     true,
			IPAddress:   c.ClientIP(),
			Metadata:    map[string]interface{}{"test": true},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		if err := h.dispatcher.Deliver(ctx, hook, ev); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"message": fmt.Sprintf("Delivery failed: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Test event delivered",
			"event":   eventName,
		})
	}
}

// DeleteWebhookHandler deletes a webhook
// DELETE /api/v1/admin/webhooks/:id
func (h *WebhookHandlers) DeleteWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		hook := h.getOwnedWebhook(c)
		if hook == nil {
			return
		}

		if err := h.webhookRepo.DeleteWebhook(c.Request.Context(), hook.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to delete webhook",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Webhook deleted",
		})
	}
}
