// Package api wires together all HTTP routes for the Keyforge server.
//
// Route grouping philosophy:
//   - The public client API (/api/v1/login, /register, /verify) is consumed by
//     end-user programs and authenticates with an application API key. It is
//     rate limited per client IP because login is the primary brute-force
//     target.
//   - The owner API (/api/v1/auth/, /api/v1/admin/) is consumed by the
//     dashboard and authenticates with a JWT session. Every admin handler
//     scopes its queries to the authenticated owner; there is no cross-tenant
//     access path.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/keyforge/keyforge/internal/api/admin"
	"github.com/keyforge/keyforge/internal/api/client"
	"github.com/keyforge/keyforge/internal/authz"
	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/crypto"
	"github.com/keyforge/keyforge/internal/db/repositories"
	"github.com/keyforge/keyforge/internal/jobs"
	"github.com/keyforge/keyforge/internal/middleware"
	"github.com/keyforge/keyforge/internal/notify"
)

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	rateLimiters   []*middleware.RateLimiter
	redisClient    *redis.Client
	expiryNotifier *jobs.AccountExpiryNotifier
}

// Shutdown stops all background goroutines and closes shared connections. It
// should be called after the HTTP server has been shut down so that in-flight
// requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.expiryNotifier != nil {
		bg.expiryNotifier.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	appRepo := repositories.NewApplicationRepository(db)
	appUserRepo := repositories.NewAppUserRepository(db)
	activityRepo := repositories.NewActivityRepository(db)

	// Webhook signing secrets are encrypted at rest when an encryption key is
	// configured. The key must be exactly 32 bytes (AES-256).
	webhookRepo := repositories.NewWebhookRepository(db)
	if encryptionKey := os.Getenv("KF_ENCRYPTION_KEY"); encryptionKey != "" {
		secretCipher, err := crypto.NewSecretCipher([]byte(encryptionKey))
		if err != nil {
			log.Fatalf("Failed to initialize secret cipher: %v", err)
		}
		webhookRepo = repositories.NewEncryptedWebhookRepository(db, secretCipher)
		slog.Info("webhook secret encryption enabled")
	} else {
		slog.Warn("KF_ENCRYPTION_KEY not set; webhook secrets are stored unencrypted")
	}

	// Wrap *sql.DB with sqlx for the blacklist and owner repositories
	sqlxDB := sqlx.NewDb(db, "postgres")
	blacklistRepo := repositories.NewBlacklistRepository(sqlxDB)
	ownerRepo := repositories.NewOwnerRepository(sqlxDB)

	// The notifier is shared by the pipeline and the admin handlers so that
	// admin-initiated events (HWID resets) flow through the same activity log
	// and webhook fan-out as login outcomes.
	notifier := notify.NewNotifier(activityRepo, webhookRepo, cfg.Webhooks)
	pipeline := authz.NewPipeline(appUserRepo, blacklistRepo, notifier)

	// Global middleware. Ordering matters: security headers must apply to all
	// responses including errors, and metrics must observe rate-limited
	// requests, so both run before any group-level middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health, readiness, and version endpoints (no auth)
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db))
	router.GET("/version", versionHandler())

	bg := &BackgroundServices{}

	// Background sweep that warns owners about accounts expiring soon.
	if cfg.Notifications.AccountExpiryEnabled {
		bg.expiryNotifier = jobs.NewAccountExpiryNotifier(appUserRepo, appRepo, notifier, &cfg.Notifications)
		go bg.expiryNotifier.Start(context.Background())
	}

	// Rate limiters are Redis-backed when an address is configured so that
	// limits hold across replicas; otherwise each replica enforces its own
	// in-process token buckets.
	if cfg.Redis.Addr != "" {
		bg.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		slog.Info("rate limiting backed by redis", "addr", cfg.Redis.Addr)
	}
	newLimiter := func(rlCfg middleware.RateLimitConfig) middleware.Limiter {
		if bg.redisClient != nil {
			return middleware.NewRedisRateLimiter(bg.redisClient, rlCfg)
		}
		rl := middleware.NewRateLimiter(rlCfg)
		bg.rateLimiters = append(bg.rateLimiters, rl)
		return rl
	}

	// Initialize handlers
	clientHandlers := client.NewHandlers(pipeline)
	authHandlers := admin.NewAuthHandlers(cfg, db)
	appHandlers := admin.NewApplicationHandlers(cfg, db)
	appUserHandlers := admin.NewAppUserHandlers(cfg, db, notifier)
	blacklistHandlers := admin.NewBlacklistHandlers(cfg, db)
	webhookHandlers := admin.NewWebhookHandlers(cfg, db, webhookRepo)
	logHandlers := admin.NewActivityLogHandlers(cfg, db)

	apiV1 := router.Group("/api/v1")
	{
		// Public client API: application API key auth, per-IP rate limit.
		// Rate limiting runs before auth so unauthenticated floods never
		// reach the database.
		clientGroup := apiV1.Group("")
		if cfg.Security.RateLimiting.Enabled {
			clientGroup.Use(middleware.RateLimitMiddleware(newLimiter(middleware.ClientAPIRateLimitConfig())))
		}
		clientGroup.Use(middleware.ClientAuthMiddleware(appRepo))
		{
			clientGroup.POST("/login", clientHandlers.LoginHandler())
			clientGroup.POST("/register", clientHandlers.RegisterHandler())
			clientGroup.POST("/verify", clientHandlers.VerifyHandler())
		}

		// Owner session endpoints get the strictest bucket: these are the
		// dashboard's credential surface.
		authGroup := apiV1.Group("/auth")
		if cfg.Security.RateLimiting.Enabled {
			authGroup.Use(middleware.RateLimitMiddleware(newLimiter(middleware.AuthRateLimitConfig())))
		}
		{
			authGroup.POST("/register", authHandlers.RegisterHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
			authGroup.GET("/me", middleware.AdminAuthMiddleware(ownerRepo), authHandlers.MeHandler())
		}

		// Owner admin API: JWT session auth, keyed per owner once
		// authenticated.
		adminGroup := apiV1.Group("/admin")
		if cfg.Security.RateLimiting.Enabled {
			adminGroup.Use(middleware.RateLimitMiddleware(newLimiter(middleware.DefaultRateLimitConfig())))
		}
		adminGroup.Use(middleware.AdminAuthMiddleware(ownerRepo))
		{
			appsGroup := adminGroup.Group("/applications")
			{
				appsGroup.GET("", appHandlers.ListApplicationsHandler())
				appsGroup.POST("", appHandlers.CreateApplicationHandler())
				appsGroup.GET("/:id", appHandlers.GetApplicationHandler())
				appsGroup.PUT("/:id", appHandlers.UpdateApplicationHandler())
				appsGroup.DELETE("/:id", appHandlers.DeleteApplicationHandler())
				appsGroup.POST("/:id/rotate-key", appHandlers.RotateAPIKeyHandler())
				appsGroup.GET("/:id/stats", appHandlers.GetApplicationStatsHandler())

				// End-user account management, scoped to one application
				appsGroup.GET("/:id/users", appUserHandlers.ListAppUsersHandler())
				appsGroup.POST("/:id/users", appUserHandlers.CreateAppUserHandler())
				appsGroup.GET("/:id/users/:user_id", appUserHandlers.GetAppUserHandler())
				appsGroup.PUT("/:id/users/:user_id", appUserHandlers.UpdateAppUserHandler())
				appsGroup.DELETE("/:id/users/:user_id", appUserHandlers.DeleteAppUserHandler())
				appsGroup.PUT("/:id/users/:user_id/password", appUserHandlers.SetPasswordHandler())
				appsGroup.POST("/:id/users/:user_id/reset-hwid", appUserHandlers.ResetHWIDHandler())

				// Block rules and the activity log, scoped to one application
				appsGroup.GET("/:id/blacklist", blacklistHandlers.ListEntriesHandler())
				appsGroup.POST("/:id/blacklist", blacklistHandlers.CreateEntryHandler())
				appsGroup.GET("/:id/logs", logHandlers.ListActivityLogsHandler())
			}

			blacklistGroup := adminGroup.Group("/blacklist")
			{
				blacklistGroup.PUT("/:id", blacklistHandlers.SetEntryActiveHandler())
				blacklistGroup.DELETE("/:id", blacklistHandlers.DeleteEntryHandler())
			}

			webhooksGroup := adminGroup.Group("/webhooks")
			{
				webhooksGroup.GET("", webhookHandlers.ListWebhooksHandler())
				webhooksGroup.POST("", webhookHandlers.CreateWebhookHandler())
				webhooksGroup.GET("/:id", webhookHandlers.GetWebhookHandler())
				webhooksGroup.PUT("/:id", webhookHandlers.UpdateWebhookHandler())
				webhooksGroup.POST("/:id/test", webhookHandlers.TestWebhookHandler())
				webhooksGroup.DELETE("/:id", webhookHandlers.DeleteWebhookHandler())
			}
		}
	}

	return router, bg
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service. The database
// is the only hard dependency: Redis and webhook targets degrade gracefully,
// so only database connectivity gates traffic.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging via slog. The output
// format (json or text) follows the globally configured handler; see
// telemetry.SetupLogger.
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS for the dashboard origin
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
