// Package config loads and validates the Keyforge configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the KF_ prefix (e.g. KF_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments.
//
// The KF_JWT_SECRET variable is read directly by the auth package rather than
// through this file because it must be validated at startup with fail-fast
// semantics in production (see auth.ValidateJWTSecret).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Security      SecurityConfig      `mapstructure:"security"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Webhooks      WebhooksConfig      `mapstructure:"webhooks"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// GetDSN returns the PostgreSQL connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// GetAddress returns the host:port listen address for the HTTP server
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig holds the optional Redis connection used for distributed rate
// limiting. When Addr is empty the server falls back to the in-process
// token-bucket limiter, which is sufficient for single-replica deployments.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig      `mapstructure:"cors"`
	RateLimiting RateLimitConfig `mapstructure:"rate_limiting"`
}

// CORSConfig holds CORS configuration for the admin API
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitConfig holds rate limiting configuration for the public client API.
// Limits are applied per client IP; the login and register endpoints are the
// primary brute-force target so they get their own (stricter) bucket.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// WebhooksConfig holds outbound webhook delivery tuning. The defaults are
// deliberately generous: subscriber endpoints are owner-operated servers that
// may be slow or internationally hosted, and a dropped security notification
// is worse than a late one.
type WebhooksConfig struct {
	// RequestTimeout bounds a single delivery attempt
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// MaxRetries is the number of additional attempts after the first failure
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBaseDelay is the backoff base; each retry doubles it (plus jitter)
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	// DeliveryPause is the pause between sequential deliveries for one event
	DeliveryPause time.Duration `mapstructure:"delivery_pause"`
}

// NotificationsConfig holds background notification job configuration
type NotificationsConfig struct {
	// AccountExpiryEnabled toggles the background sweep that emits
	// account_expiring events for accounts whose subscription is ending soon
	AccountExpiryEnabled bool `mapstructure:"account_expiry_enabled"`
	// AccountExpiryWarningDays is how far ahead of expires_at the warning fires
	AccountExpiryWarningDays int `mapstructure:"account_expiry_warning_days"`
	// AccountExpiryCheckIntervalHours is how often the sweep runs
	AccountExpiryCheckIntervalHours int `mapstructure:"account_expiry_check_interval_hours"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
// viper.BindEnv only errors when called with zero keys; since every key here is a non-empty
// hardcoded string, any error indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.enabled",
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// Webhooks
		"webhooks.request_timeout",
		"webhooks.max_retries",
		"webhooks.retry_base_delay",
		"webhooks.delivery_pause",

		// Notifications
		"notifications.account_expiry_enabled",
		"notifications.account_expiry_warning_days",
		"notifications.account_expiry_check_interval_hours",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/keyforge")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("KF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in sensitive fields so secrets may be injected
	// indirectly (e.g. database.password: ${DB_PASSWORD} in the YAML file).
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "keyforge")
	v.SetDefault("database.user", "keyforge")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Redis defaults (disabled unless an address is configured)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 60)
	v.SetDefault("security.rate_limiting.burst", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "keyforge")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// Webhook delivery defaults
	v.SetDefault("webhooks.request_timeout", "30s")
	v.SetDefault("webhooks.max_retries", 3)
	v.SetDefault("webhooks.retry_base_delay", "1s")
	v.SetDefault("webhooks.delivery_pause", "250ms")

	// Notification job defaults
	v.SetDefault("notifications.account_expiry_enabled", true)
	v.SetDefault("notifications.account_expiry_warning_days", 3)
	v.SetDefault("notifications.account_expiry_check_interval_hours", 24)
}

// expandEnv expands ${VAR} style references in a config value
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		if resolved := os.Getenv(envVar); resolved != "" {
			return resolved
		}
	}
	return value
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Security.RateLimiting.Enabled && c.Security.RateLimiting.RequestsPerMinute <= 0 {
		return fmt.Errorf("security.rate_limiting.requests_per_minute must be positive when rate limiting is enabled")
	}
	if c.Webhooks.MaxRetries < 0 {
		return fmt.Errorf("webhooks.max_retries must not be negative")
	}
	if c.Webhooks.RequestTimeout <= 0 {
		return fmt.Errorf("webhooks.request_timeout must be positive")
	}
	if c.Notifications.AccountExpiryEnabled && c.Notifications.AccountExpiryWarningDays <= 0 {
		return fmt.Errorf("notifications.account_expiry_warning_days must be positive when the expiry sweep is enabled")
	}
	return nil
}
