// Package middleware holds the gin middleware installed on every route:
// today, only bearer-token authentication (spec §6).
package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/config"
)

// BearerAuth returns a gin middleware enforcing cfg's bearer token on every
// request except the health/version probes and loopback callers. Disabled
// entirely (no-op) when cfg.Enabled is false.
func BearerAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || cfg.Token == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if path == "/healthz" || path == "/version" {
			c.Next()
			return
		}

		if isLocalRequest(c.Request) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if authHeader == "" || !strings.HasPrefix(authHeader, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "missing or malformed Authorization header, expected 'Bearer <token>'",
			})
			return
		}

		provided := authHeader[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid bearer token",
			})
			return
		}

		c.Next()
	}
}

// isLocalRequest reports whether r's remote address is loopback, allowing
// same-host tooling to skip the token (e.g. shell scripts run directly on
// the box).
func isLocalRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
