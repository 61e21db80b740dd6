// app_users.go implements end-user account management within one owned
// application: CRUD, pause/activate via partial update, password replacement,
// and HWID reset.
package admin

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/keyforge/keyforge/internal/auth"
	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/db/repositories"
	"github.com/keyforge/keyforge/internal/notify"
	"github.com/keyforge/keyforge/internal/validation"
)

// AppUserHandlers handles end-user account management endpoints
type AppUserHandlers struct {
	cfg      *config.Config
	db       *sql.DB
	appRepo  *repositories.ApplicationRepository
	userRepo *repositories.AppUserRepository
	recorder notify.Recorder
}

// NewAppUserHandlers creates a new AppUserHandlers instance. The recorder
// receives admin-initiated events (HWID resets) so they land in the same
// activity log and webhook fan-out as login outcomes.
func NewAppUserHandlers(cfg *config.Config, db *sql.DB, recorder notify.Recorder) *AppUserHandlers {
	return &AppUserHandlers{
		cfg:      cfg,
		db:       db,
		appRepo:  repositories.NewApplicationRepository(db),
		userRepo: repositories.NewAppUserRepository(db),
		recorder: recorder,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// getOwnedAppUser resolves :id to an owned application and :user_id to an
// account within it. On failure it writes the error response and returns
// nils.
func (h *AppUserHandlers) getOwnedAppUser(c *gin.Context) (*models.Application, *models.AppUser) {
	app := getOwnedApplication(c, h.appRepo)
	if app == nil {
		return nil, nil
	}

	user, err := h.userRepo.GetAppUserByID(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
		return nil, nil
	}
	if user == nil || user.ApplicationID != app.ID {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "User not found",
		})
		return nil, nil
	}
	return app, user
}

type createAppUserRequest struct {
	Username  string     `json:"username" binding:"required"`
	Password  string     `json:"password" binding:"required"`
	Email     *string    `json:"email"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type updateAppUserRequest struct {
	Email       *string    `json:"email"`
	IsActive    *bool      `json:"is_active"`
	IsPaused    *bool      `json:"is_paused"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClearExpiry bool       `json:"clear_expires_at"`
}

// ListAppUsersHandler lists an application's accounts
// GET /api/v1/admin/applications/:id/users
func (h *AppUserHandlers) ListAppUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		users, err := h.userRepo.ListAppUsers(c.Request.Context(), app.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to list users",
			})
			return
		}

		out := make([]gin.H, 0, len(users))
		for _, u := range users {
			out = append(out, appUserResponse(u))
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"users":   out,
		})
	}
}

// CreateAppUserHandler creates an account directly, bypassing the client
// register flow. Owners use this to provision accounts with an expiry.
// POST /api/v1/admin/applications/:id/users
func (h *AppUserHandlers) CreateAppUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := getOwnedApplication(c, h.appRepo)
		if app == nil {
			return
		}

		var req createAppUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "username and password are required",
			})
			return
		}

		if err := validation.ValidateUsername(req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}
		if req.Email != nil && *req.Email != "" {
			if err := validation.ValidateEmail(*req.Email); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": err.Error(),
				})
				return
			}
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}

		user := &models.AppUser{
			ApplicationID: app.ID,
			Username:      req.Username,
			Email:         req.Email,
			PasswordHash:  hash,
			ExpiresAt:     req.ExpiresAt,
			IsActive:      true,
		}
		if err := h.userRepo.CreateAppUser(c.Request.Context(), user); err != nil {
			if isUniqueViolation(err) {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"message": "username or email is already registered",
				})
				return
			}
			slog.Error("failed to create app user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to create user",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"user":    appUserResponse(user),
		})
	}
}

// GetAppUserHandler retrieves one account
// GET /api/v1/admin/applications/:id/users/:user_id
func (h *AppUserHandlers) GetAppUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, user := h.getOwnedAppUser(c)
		if user == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user":    appUserResponse(user),
		})
	}
}

// UpdateAppUserHandler applies a partial update: email, active flag, paused
// flag, expiry. Pausing is the reversible suspension owners reach for first;
// deactivation reads as a ban in the client-facing message.
// PUT /api/v1/admin/applications/:id/users/:user_id
func (h *AppUserHandlers) UpdateAppUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, user := h.getOwnedAppUser(c)
		if user == nil {
			return
		}

		var req updateAppUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "invalid request body",
			})
			return
		}

		if req.Email != nil {
			if *req.Email != "" {
				if err := validation.ValidateEmail(*req.Email); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{
						"success": false,
						"message": err.Error(),
					})
					return
				}
				user.Email = req.Email
			} else {
				user.Email = nil
			}
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		if req.IsPaused != nil {
			user.IsPaused = *req.IsPaused
		}
		if req.ClearExpiry {
			user.ExpiresAt = nil
		} else if req.ExpiresAt != nil {
			user.ExpiresAt = req.ExpiresAt
		}

		if err := h.userRepo.UpdateAppUser(c.Request.Context(), user); err != nil {
			if isUniqueViolation(err) {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"message": "email is already registered",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to update user",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user":    appUserResponse(user),
		})
	}
}

// DeleteAppUserHandler hard-deletes an account
// DELETE /api/v1/admin/applications/:id/users/:user_id
func (h *AppUserHandlers) DeleteAppUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, user := h.getOwnedAppUser(c)
		if user == nil {
			return
		}

		if err := h.userRepo.DeleteAppUser(c.Request.Context(), user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to delete user",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "User deleted",
		})
	}
}

type setPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// SetPasswordHandler replaces an account's password
// PUT /api/v1/admin/applications/:id/users/:user_id/password
func (h *AppUserHandlers) SetPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, user := h.getOwnedAppUser(c)
		if user == nil {
			return
		}

		var req setPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "password is required",
			})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}
		if err := h.userRepo.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to update password",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Password updated",
		})
	}
}

// ResetHWIDHandler clears an account's hardware binding. The next successful
// HWID-locked login binds whatever machine it comes from.
// POST /api/v1/admin/applications/:id/users/:user_id/reset-hwid
func (h *AppUserHandlers) ResetHWIDHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app, user := h.getOwnedAppUser(c)
		if user == nil {
			return
		}

		if err := h.userRepo.ResetHWID(c.Request.Context(), user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to reset hardware ID",
			})
			return
		}

		h.recorder.Record(c.Request.Context(), notify.Event{
			Name:        notify.EventHWIDReset,
			Application: app,
			User:        user,
			Success:     true,
			IPAddress:   c.ClientIP(),
			UserAgent:   c.Request.UserAgent(),
		})

		slog.Info("hwid reset", "application_id", app.ID, "app_user_id", user.ID)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Hardware ID reset",
		})
	}
}
