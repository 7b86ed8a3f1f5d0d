package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const IntakeKeyHeader = "X-Intake-Token"

// RequireIntakeKey rejects requests whose X-Intake-Token does not match key.
// An empty key leaves the route open, which is only meant for local development.
func RequireIntakeKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		token := c.GetHeader(IntakeKeyHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing intake token"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid intake token"})
			return
		}

		c.Next()
	}
}
