// applications.go implements application CRUD, API key rotation, and
// dashboard stats. Every handler resolves the target application and checks
// it belongs to the authenticated owner; applications owned by someone else
// are reported as not found so the ID space leaks nothing.
package admin

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/auth"
	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/db/repositories"
	"github.com/keyforge/keyforge/internal/middleware"
	"github.com/keyforge/keyforge/internal/validation"
)

// ApplicationHandlers handles application management endpoints
type ApplicationHandlers struct {
	cfg     *config.Config
	db      *sql.DB
	appRepo *repositories.ApplicationRepository
}

// NewApplicationHandlers creates a new ApplicationHandlers instance
func NewApplicationHandlers(cfg *config.Config, db *sql.DB) *ApplicationHandlers {
	return &ApplicationHandlers{
		cfg:     cfg,
		db:      db,
		appRepo: repositories.NewApplicationRepository(db),
	}
}

// getOwnedApplication resolves the :id path parameter to an application owned
// by the authenticated owner. On failure it writes the error response and
// returns nil.
func getOwnedApplication(c *gin.Context, appRepo *repositories.ApplicationRepository) *models.Application {
	owner := middleware.OwnerFromContext(c)
	if owner == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Not authenticated",
		})
		return nil
	}

	app, err := appRepo.GetApplicationByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
		return nil
	}
	if app == nil || app.OwnerID != owner.ID {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Application not found",
		})
		return nil
	}
	return app
}

type createApplicationRequest struct {
	Name            string  `json:"name" binding:"required"`
	RequiredVersion *string `json:"required_version"`
	HWIDLockEnabled bool    `json:"hwid_lock_enabled"`
}

type messagesRequest struct {
	LoginSuccess    *string `json:"login_success"`
	LoginFailed     *string `json:"login_failed"`
	Disabled        *string `json:"disabled"`
	Expired         *string `json:"expired"`
	Paused          *string `json:"paused"`
	VersionMismatch *string `json:"version_mismatch"`
	HWIDMismatch    *string `json:"hwid_mismatch"`
}

type updateApplicationRequest struct {
	Name            *string          `json:"name"`
	IsActive        *bool            `json:"is_active"`
	RequiredVersion *string          `json:"required_version"`
	ClearVersion    bool             `json:"clear_required_version"`
	HWIDLockEnabled *bool            `json:"hwid_lock_enabled"`
	Messages        *messagesRequest `json:"messages"`
}

// ListApplicationsHandler lists the owner's applications
// GET /api/v1/admin/applications
func (h *ApplicationHandlers) ListApplicationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := middleware.OwnerFromContext(c)
		if owner == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authenticated",
			})
			return
		}

		apps, err := h.appRepo.ListApplicationsByOwner(c.Request.Context(), owner.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to list applications",
			})
			return
		}

		out := make([]gin.H, 0, len(apps))
		for _, a := range apps {
			out = append(out, applicationResponse(a))
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"applications": out,
		})
	}
}

// CreateApplicationHandler registers a new application and generates its API key
// POST /api/v1/admin/applications
func (h *ApplicationHandlers) CreateApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := middleware.OwnerFromContext(c)
		if owner == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authenticated",
			})
			return
		}

		var req createApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "name is required",
			})
			return
		}

		if req.RequiredVersion != nil && *req.RequiredVersion != "" {
			if err := validation.ValidateSemver(*req.RequiredVersion); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": err.Error(),
				})
				return
			}
		}

		apiKey, _, err := auth.GenerateAPIKey()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to generate API key",
			})
			return
		}

		app := &models.Application{
			OwnerID:         owner.ID,
			Name:            req.Name,
			APIKey:          apiKey,
			IsActive:        true,
			RequiredVersion: req.RequiredVersion,
			HWIDLockEnabled: req.HWIDLockEnabled,
			Messages:        models.DefaultMessages(),
		}
		if err := h.appRepo.CreateApplication(c.Request.Context(), app); err != nil {
			slog.Error("failed to create application", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to create application",
			})
			return
		}

		slog.Info("application created", "application_id", app.ID, "owner_id", owner.ID)
		c.JSON(http.StatusCreated, gin.H{
			"success":     true,
			"application": applicationResponse(app),
		})
	}
}

// GetApplicationHandler retrieves one application
// GET /api/v1/admin/applications/:id
func (h *ApplicationHandlers) GetApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"application": applicationResponse(app),
		})
	}
}

// UpdateApplicationHandler applies a partial update to an application's
// settings and message templates
// PUT /api/v1/admin/applications/:id
func (h *ApplicationHandlers) UpdateApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		var req updateApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "invalid request body",
			})
			return
		}

		if req.Name != nil {
			app.Name = *req.Name
		}
		if req.IsActive != nil {
			app.IsActive = *req.IsActive
		}
		if req.ClearVersion {
			app.RequiredVersion = nil
		} else if req.RequiredVersion != nil {
			if err := validation.ValidateSemver(*req.RequiredVersion); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": err.Error(),
				})
				return
			}
			app.RequiredVersion = req.RequiredVersion
		}
		if req.HWIDLockEnabled != nil {
			app.HWIDLockEnabled = *req.HWIDLockEnabled
		}
		if req.Messages != nil {
			applyMessages(&app.Messages, req.Messages)
		}

		if err := h.appRepo.UpdateApplication(c.Request.Context(), app); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to update application",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"application": applicationResponse(app),
		})
	}
}

func applyMessages(m *models.MessageTemplates, req *messagesRequest) {
	if req.LoginSuccess != nil {
		m.LoginSuccess = *req.LoginSuccess
	}
	if req.LoginFailed != nil {
		m.LoginFailed = *req.LoginFailed
	}
	if req.Disabled != nil {
		m.Disabled = *req.Disabled
	}
	if req.Expired != nil {
		m.Expired = *req.Expired
	}
	if req.Paused != nil {
		m.Paused = *req.Paused
	}
	if req.VersionMismatch != nil {
		m.VersionMismatch = *req.VersionMismatch
	}
	if req.HWIDMismatch != nil {
		m.HWIDMismatch = *req.HWIDMismatch
	}
}

// DeleteApplicationHandler hard-deletes an application. App users, scoped
// blacklist entries, and activity logs cascade at the schema level.
// DELETE /api/v1/admin/applications/:id
func (h *ApplicationHandlers) DeleteApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		if err := h.appRepo.DeleteApplication(c.Request.Context(), app.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to delete application",
			})
			return
		}

		slog.Info("application deleted", "application_id", app.ID)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Application deleted",
		})
	}
}

// RotateAPIKeyHandler replaces the application's API key. The old key stops
// working immediately.
// POST /api/v1/admin/applications/:id/rotate-key
func (h *ApplicationHandlers) RotateAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		newKey, _, err := auth.GenerateAPIKey()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to generate API key",
			})
			return
		}
		if err := h.appRepo.RotateAPIKey(c.Request.Context(), app.ID, newKey); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to rotate API key",
			})
			return
		}

		slog.Info("api key rotated", "application_id", app.ID)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"api_key": newKey,
		})
	}
}

// GetApplicationStatsHandler returns dashboard counters for one application
// GET /api/v1/admin/applications/:id/stats
func (h *ApplicationHandlers) GetApplicationStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		stats, err := h.appRepo.GetApplicationStats(c.Request.Context(), app.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to compute stats",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"stats":   stats,
		})
	}
}
