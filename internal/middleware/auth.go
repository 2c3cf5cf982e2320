package middleware

import (
	"crypto/subtle"

	"github.com/acme/supportlens/pkg/response"
	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// APIKeyAuth returns a middleware requiring the configured API key in the
// X-API-Key header. An empty configured key disables the check, for local
// development.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		supplied := c.GetHeader(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(apiKey)) != 1 {
			response.Forbidden(c, "invalid API key")
			c.Abort()
			return
		}
		c.Next()
	}
}
