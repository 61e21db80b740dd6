// security.go provides Gin middleware that injects protective HTTP response
// headers. The API serves JSON only, so the default profile used by the router
// (APISecurityHeadersConfig) locks the CSP down to 'none'; the permissive
// profile exists for deployments that serve the dashboard from the same origin.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig selects which protective headers are emitted and with
// what values.
type SecurityHeadersConfig struct {
	// EnableHSTS enables HTTP Strict Transport Security
	EnableHSTS bool
	// HSTSMaxAge is the max-age value for HSTS in seconds
	HSTSMaxAge int
	// HSTSIncludeSubdomains includes subdomains in HSTS
	HSTSIncludeSubdomains bool
	// HSTSPreload enables HSTS preloading
	HSTSPreload bool
	// EnableFrameOptions enables X-Frame-Options header
	EnableFrameOptions bool
	// FrameOptionsValue is the value for X-Frame-Options (DENY, SAMEORIGIN)
	FrameOptionsValue string
	// EnableContentTypeOptions enables X-Content-Type-Options: nosniff
	EnableContentTypeOptions bool
	// EnableXSSProtection enables the legacy X-XSS-Protection header
	EnableXSSProtection bool
	// ContentSecurityPolicy is the CSP header value
	ContentSecurityPolicy string
	// ReferrerPolicy is the Referrer-Policy header value
	ReferrerPolicy string
	// PermissionsPolicy is the Permissions-Policy header value
	PermissionsPolicy string
}

// DefaultSecurityHeadersConfig returns header defaults suitable when the
// owner dashboard is served from the same origin as the API.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:               true,
		HSTSMaxAge:               31536000, // 1 year
		HSTSIncludeSubdomains:    true,
		HSTSPreload:              false,
		EnableFrameOptions:       true,
		FrameOptionsValue:        "DENY",
		EnableContentTypeOptions: true,
		EnableXSSProtection:      true,
		ContentSecurityPolicy:    "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; connect-src 'self'",
		ReferrerPolicy:           "strict-origin-when-cross-origin",
		PermissionsPolicy:        "geolocation=(), microphone=(), camera=()",
	}
}

// APISecurityHeadersConfig returns security headers for a JSON-only API:
// nothing is rendered in a browser, so the CSP forbids everything and the
// XSS auditor header is omitted.
func APISecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:               true,
		HSTSMaxAge:               31536000,
		HSTSIncludeSubdomains:    true,
		HSTSPreload:              false,
		EnableFrameOptions:       true,
		FrameOptionsValue:        "DENY",
		EnableContentTypeOptions: true,
		EnableXSSProtection:      false,
		ContentSecurityPolicy:    "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:           "no-referrer",
	}
}

type headerPair struct {
	name, value string
}

// buildHeaders resolves the config into the literal header set once, at
// middleware construction, so the per-request path is a plain loop.
func buildHeaders(config SecurityHeadersConfig) []headerPair {
	var headers []headerPair
	add := func(name, value string) {
		headers = append(headers, headerPair{name, value})
	}

	if config.EnableHSTS {
		hsts := "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if config.HSTSPreload {
			hsts += "; preload"
		}
		add("Strict-Transport-Security", hsts)
	}
	if config.EnableFrameOptions && config.FrameOptionsValue != "" {
		add("X-Frame-Options", config.FrameOptionsValue)
	}
	if config.EnableContentTypeOptions {
		add("X-Content-Type-Options", "nosniff")
	}
	if config.EnableXSSProtection {
		add("X-XSS-Protection", "1; mode=block")
	}
	if config.ContentSecurityPolicy != "" {
		add("Content-Security-Policy", config.ContentSecurityPolicy)
	}
	if config.ReferrerPolicy != "" {
		add("Referrer-Policy", config.ReferrerPolicy)
	}
	if config.PermissionsPolicy != "" {
		add("Permissions-Policy", config.PermissionsPolicy)
	}

	add("X-Permitted-Cross-Domain-Policies", "none")
	add("Cross-Origin-Embedder-Policy", "require-corp")
	add("Cross-Origin-Opener-Policy", "same-origin")
	add("Cross-Origin-Resource-Policy", "same-origin")
	return headers
}

// SecurityHeadersMiddleware adds the configured security headers to every
// response, including error responses written by earlier middleware.
func SecurityHeadersMiddleware(config SecurityHeadersConfig) gin.HandlerFunc {
	headers := buildHeaders(config)
	return func(c *gin.Context) {
		for _, h := range headers {
			c.Header(h.name, h.value)
		}
		c.Next()
	}
}
