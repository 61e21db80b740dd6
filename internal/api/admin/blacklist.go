// blacklist.go implements block-rule management. Owners create entries scoped
// to their own applications; global entries (application_id IS NULL) are
// visible in listings but managed operationally, not through this API.
package admin

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/db/repositories"
	"github.com/keyforge/keyforge/internal/middleware"
)

// BlacklistHandlers handles block-rule management endpoints
type BlacklistHandlers struct {
	cfg           *config.Config
	db            *sql.DB
	appRepo       *repositories.ApplicationRepository
	blacklistRepo *repositories.BlacklistRepository
}

// NewBlacklistHandlers creates a new BlacklistHandlers instance
func NewBlacklistHandlers(cfg *config.Config, db *sql.DB) *BlacklistHandlers {
	return &BlacklistHandlers{
		cfg:           cfg,
		db:            db,
		appRepo:       repositories.NewApplicationRepository(db),
		blacklistRepo: repositories.NewBlacklistRepository(sqlx.NewDb(db, "postgres")),
	}
}

type createBlacklistEntryRequest struct {
	Type   string  `json:"type" binding:"required"`
	Value  string  `json:"value" binding:"required"`
	Reason *string `json:"reason"`
}

type setEntryActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// getOwnedEntry resolves :id to a blacklist entry scoped to one of the
// authenticated owner's applications. Global entries and entries of other
// owners come back as not found.
func (h *BlacklistHandlers) getOwnedEntry(c *gin.Context) *models.BlacklistEntry {
	owner := middleware.OwnerFromContext(c)
	if owner == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Not authenticated",
		})
		return nil
	}

	entry, err := h.blacklistRepo.GetEntryByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
		return nil
	}
	if entry == nil || entry.IsGlobal() {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Blacklist entry not found",
		})
		return nil
	}

	app, err := h.appRepo.GetApplicationByID(c.Request.Context(), *entry.ApplicationID)
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
			"message": "Blacklist entry not found",
		})
		return nil
	}
	return entry
}

// ListEntriesHandler lists block rules visible to one application: its own
// scoped entries plus global ones
// GET /api/v1/admin/applications/:id/blacklist
func (h *BlacklistHandlers) ListEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		entries, err := h.blacklistRepo.ListEntries(c.Request.Context(), app.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to list blacklist entries",
			})
			return
		}

		out := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			out = append(out, blacklistEntryResponse(e))
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"entries": out,
		})
	}
}

// CreateEntryHandler creates a block rule scoped to one owned application
// POST /api/v1/admin/applications/:id/blacklist
func (h *BlacklistHandlers) CreateEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		var req createBlacklistEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "type and value are required",
			})
			return
		}
		if !models.ValidBlacklistType(req.Type) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "type must be one of: ip, username, email, hwid",
			})
			return
		}

		entry := &models.BlacklistEntry{
			ApplicationID: &app.ID,
			Type:          req.Type,
			Value:         req.Value,
			Reason:        req.Reason,
			IsActive:      true,
		}
		if err := h.blacklistRepo.CreateEntry(c.Request.Context(), entry); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to create blacklist entry",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"entry":   blacklistEntryResponse(entry),
		})
	}
}

// SetEntryActiveHandler toggles a block rule without deleting it
// PUT /api/v1/admin/blacklist/:id
func (h *BlacklistHandlers) SetEntryActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := h.getOwnedEntry(c)
		if entry == nil {
			return
		}

		var req setEntryActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "is_active is required",
			})
			return
		}

		if err := h.blacklistRepo.SetEntryActive(c.Request.Context(), entry.ID, *req.IsActive); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to update blacklist entry",
			})
			return
		}
		entry.IsActive = *req.IsActive

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"entry":   blacklistEntryResponse(entry),
		})
	}
}

// DeleteEntryHandler deletes a block rule
// DELETE /api/v1/admin/blacklist/:id
func (h *BlacklistHandlers) DeleteEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := h.getOwnedEntry(c)
		if entry == nil {
			return
		}

		if err := h.blacklistRepo.DeleteEntry(c.Request.Context(), entry.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to delete blacklist entry",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Blacklist entry deleted",
		})
	}
}
