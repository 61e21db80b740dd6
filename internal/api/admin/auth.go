// auth.go implements owner account registration, login, and session
// introspection. Owners authenticate with email and password and receive a
// JWT that the rest of the admin API requires.
package admin

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/keyforge/keyforge/internal/auth"
	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/db/repositories"
	"github.com/keyforge/keyforge/internal/middleware"
	"github.com/keyforge/keyforge/internal/validation"
)

// sessionDuration bounds an owner JWT. Expired sessions require a fresh
// login; there is no refresh flow.
const sessionDuration = 24 * time.Hour

// AuthHandlers handles owner authentication endpoints
type AuthHandlers struct {
	cfg       *config.Config
	db        *sql.DB
	ownerRepo *repositories.OwnerRepository
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config, db *sql.DB) *AuthHandlers {
	return &AuthHandlers{
		cfg:       cfg,
		db:        db,
		ownerRepo: repositories.NewOwnerRepository(sqlx.NewDb(db, "postgres")),
	}
}

type ownerRegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ownerLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterHandler creates a new owner account and issues a session token
// POST /api/v1/auth/register
func (h *AuthHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ownerRegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "email, name, and password are required",
			})
			return
		}

		if err := validation.ValidateEmail(req.Email); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}

		existing, err := h.ownerRepo.GetOwnerByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "email is already registered",
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

		owner := &models.Owner{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
		}
		if err := h.ownerRepo.CreateOwner(c.Request.Context(), owner); err != nil {
			slog.Error("failed to create owner", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to create account",
			})
			return
		}

		token, err := auth.GenerateJWT(owner.ID, owner.Email, sessionDuration)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to issue session token",
			})
			return
		}

		slog.Info("owner registered", "owner_id", owner.ID)
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"token":   token,
			"owner":   ownerResponse(owner),
		})
	}
}

// LoginHandler authenticates an owner and issues a session token. Unknown
// emails and wrong passwords get the same response.
// POST /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ownerLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "email and password are required",
			})
			return
		}

		owner, err := h.ownerRepo.GetOwnerByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}
		if owner == nil || !auth.VerifyPassword(req.Password, owner.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid email or password",
			})
			return
		}

		token, err := auth.GenerateJWT(owner.ID, owner.Email, sessionDuration)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to issue session token",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"token":   token,
			"owner":   ownerResponse(owner),
		})
	}
}

// MeHandler returns the authenticated owner's account
// GET /api/v1/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := middleware.OwnerFromContext(c)
		if owner == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authenticated",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"owner":   ownerResponse(owner),
		})
	}
}
