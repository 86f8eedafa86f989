package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// previewPolicy lets the preview document load its CDNs and compile inline
// JSX with Babel standalone, and lets the builder UI frame it.
var previewPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.tailwindcss.com https://unpkg.com",
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' data: https:",
	"connect-src 'self'",
	"frame-ancestors 'self'",
}, "; ")

// PreviewCSP replaces the policy set by Security on preview routes.
func PreviewCSP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", previewPolicy)
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Next()
	}
}
