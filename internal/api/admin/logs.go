// logs.go implements read access to the activity log. Logs are immutable;
// there are no write or delete endpoints.
package admin

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/repositories"
)

// ActivityLogHandlers handles activity log query endpoints
type ActivityLogHandlers struct {
	cfg          *config.Config
	db           *sql.DB
	appRepo      *repositories.ApplicationRepository
	activityRepo *repositories.ActivityRepository
}

// NewActivityLogHandlers creates a new ActivityLogHandlers instance
func NewActivityLogHandlers(cfg *config.Config, db *sql.DB) *ActivityLogHandlers {
	return &ActivityLogHandlers{
		cfg:          cfg,
		db:           db,
		appRepo:      repositories.NewApplicationRepository(db),
		activityRepo: repositories.NewActivityRepository(db),
	}
}

// ListActivityLogsHandler lists an application's activity log, newest first
// GET /api/v1/admin/applications/:id/logs?event=&success=&user_id=&start=&end=&page=&per_page=
func (h *ActivityLogHandlers) ListActivityLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 200 {
			perPage = 50
		}

		var filters repositories.ActivityFilters
		if event := c.Query("event"); event != "" {
			filters.Event = &event
		}
		if raw := c.Query("success"); raw != "" {
			success, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "success must be true or false",
				})
				return
			}
			filters.Success = &success
		}
		if userID := c.Query("user_id"); userID != "" {
			filters.AppUserID = &userID
		}
		if raw := c.Query("start"); raw != "" {
			start, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "start must be an RFC3339 timestamp",
				})
				return
			}
			filters.StartDate = &start
		}
		if raw := c.Query("end"); raw != "" {
			end, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "end must be an RFC3339 timestamp",
				})
				return
			}
			filters.EndDate = &end
		}

		offset := (page - 1) * perPage
		logs, total, err := h.activityRepo.ListActivityLogs(c.Request.Context(), app.ID, filters, perPage, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to list activity logs",
			})
			return
		}

		out := make([]gin.H, 0, len(logs))
		for _, l := range logs {
			out = append(out, activityLogResponse(l))
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"logs":    out,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}
