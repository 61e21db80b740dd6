// Package client implements the public API consumed by end-user programs:
// register, login, and verify. Every route requires a valid application API
// key (resolved by middleware.ClientAuthMiddleware); the handlers translate
// HTTP requests into pipeline calls and pipeline outcomes back into the
// response envelope.
//
// The envelope is uniform: {"success": bool, "message": string, ...}. Clients
// are expected to show message verbatim to the end user, which is why the
// pipeline sources it from the application's configured templates.
package client

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/authz"
	"github.com/keyforge/keyforge/internal/middleware"
)

// Handlers handles the client-facing authentication endpoints
type Handlers struct {
	pipeline *authz.Pipeline
}

// NewHandlers creates a new Handlers instance over the authorization pipeline
func NewHandlers(pipeline *authz.Pipeline) *Handlers {
	return &Handlers{pipeline: pipeline}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Version  string `json:"version"`
	HWID     string `json:"hwid"`
}

type registerRequest struct {
	Username  string     `json:"username" binding:"required"`
	Password  string     `json:"password" binding:"required"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"expires_at"`
	HWID      string     `json:"hwid"`
}

type verifyRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// LoginHandler runs one login attempt through the authorization pipeline
// POST /api/v1/login
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := middleware.ApplicationFromContext(c)
		if app == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "username and password are required",
			})
			return
		}

		result, err := h.pipeline.Login(c.Request.Context(), app, authz.LoginRequest{
			Username:  req.Username,
			Password:  req.Password,
			Version:   req.Version,
			HWID:      req.HWID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		if !result.Success {
			resp := gin.H{
				"success": false,
				"message": result.Message,
			}
			if result.Reject == authz.RejectVersionMismatch {
				resp["required_version"] = result.RequiredVersion
				resp["current_version"] = result.CurrentVersion
			}
			c.JSON(result.Reject.HTTPStatus(), resp)
			return
		}

		u := result.User
		resp := gin.H{
			"success":     true,
			"message":     result.Message,
			"user_id":     u.ID,
			"username":    u.Username,
			"hwid_locked": result.HWIDLocked,
		}
		if u.Email != nil {
			resp["email"] = *u.Email
		}
		if u.ExpiresAt != nil {
			resp["expires_at"] = u.ExpiresAt.UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// RegisterHandler creates a new end-user account for the resolved application
// POST /api/v1/register
func (h *Handlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := middleware.ApplicationFromContext(c)
		if app == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "username and password are required",
			})
			return
		}

		result, err := h.pipeline.Register(c.Request.Context(), app, authz.RegisterRequest{
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			ExpiresAt: req.ExpiresAt,
			HWID:      req.HWID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		if !result.Success {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": result.Message,
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":  true,
			"message":  result.Message,
			"user_id":  result.User.ID,
			"username": result.User.Username,
		})
	}
}

// VerifyHandler checks whether a previously issued user ID is still valid.
// Deliberately narrower than login: it does not touch blacklists, versions,
// or the HWID lock, so clients can poll it as a cheap session probe.
// POST /api/v1/verify
func (h *Handlers) VerifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := middleware.ApplicationFromContext(c)
		if app == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "user_id is required",
			})
			return
		}

		result, err := h.pipeline.Verify(c.Request.Context(), app, req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		if result.NotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": result.Message,
			})
			return
		}
		if !result.Success {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": result.Message,
			})
			return
		}

		resp := gin.H{
			"success":  true,
			"message":  result.Message,
			"user_id":  result.User.ID,
			"username": result.User.Username,
		}
		if result.User.Email != nil {
			resp["email"] = *result.User.Email
		}
		if result.User.ExpiresAt != nil {
			resp["expires_at"] = result.User.ExpiresAt.UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, resp)
	}
}
