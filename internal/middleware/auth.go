// Package middleware provides Gin HTTP middleware for authentication, rate
// limiting, security headers, metrics, and request IDs.
//
// Middleware ordering matters and is enforced in router.go. The global chain
// runs RequestID, Metrics, Logger, CORS, and SecurityHeaders on every request;
// SecurityHeaders sets its headers before handlers run, so they appear on all
// responses including errors written downstream. RateLimit and the auth
// middlewares attach per route group, with rate limiting ahead of auth to
// block brute-force attempts before any DB work.
// Two distinct auth surfaces exist: client programs authenticate with an
// application API key, dashboard owners authenticate with a JWT session.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/keyforge/internal/auth"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/db/repositories"
	"github.com/keyforge/keyforge/internal/telemetry"
)

// Context keys populated by the auth middlewares.
const (
	ApplicationKey = "application"
	OwnerKey       = "owner"
	OwnerIDKey     = "owner_id"
)

// ClientAuthMiddleware authenticates client API requests by application API
// key, accepted either in the X-API-Key header or the api_key query parameter.
// An unknown or inactive key is rejected with a generic message and no
// activity log: no application context exists to attribute an event to.
func ClientAuthMiddleware(appRepo *repositories.ApplicationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}
		if key == "" {
			telemetry.LoginOutcomesTotal.WithLabelValues("invalid_api_key").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "API key is required",
			})
			return
		}

		app, err := appRepo.GetApplicationByAPIKey(c.Request.Context(), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}
		if app == nil || !app.IsActive {
			// Inactive applications are indistinguishable from unknown keys.
			telemetry.LoginOutcomesTotal.WithLabelValues("invalid_api_key").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid API key",
			})
			return
		}

		c.Set(ApplicationKey, app)
		c.Next()
	}
}

// ApplicationFromContext returns the application resolved by
// ClientAuthMiddleware, or nil when the middleware did not run.
func ApplicationFromContext(c *gin.Context) *models.Application {
	v, ok := c.Get(ApplicationKey)
	if !ok {
		return nil
	}
	app, _ := v.(*models.Application)
	return app
}

// AdminAuthMiddleware authenticates dashboard requests with a Bearer JWT
// issued at owner login. The owner row is re-read per request so deleted
// accounts lose access immediately rather than at token expiry.
func AdminAuthMiddleware(ownerRepo *repositories.OwnerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractAPIKeyFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing or malformed authorization header",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired session",
			})
			return
		}

		owner, err := ownerRepo.GetOwnerByID(c.Request.Context(), claims.OwnerID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}
		if owner == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Account no longer exists",
			})
			return
		}

		c.Set(OwnerKey, owner)
		c.Set(OwnerIDKey, owner.ID)
		c.Next()
	}
}

// OwnerFromContext returns the owner resolved by AdminAuthMiddleware, or nil.
func OwnerFromContext(c *gin.Context) *models.Owner {
	v, ok := c.Get(OwnerKey)
	if !ok {
		return nil
	}
	owner, _ := v.(*models.Owner)
	return owner
}
