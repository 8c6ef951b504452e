package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type KeyAuthenticator interface {
	Authenticate(key string) bool
}

// RequireAPIKey expects "Authorization: Bearer <key>". A missing or malformed
// header is 401; a wrong key is 403.
func RequireAPIKey(auth KeyAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		key, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			return
		}
		if !auth.Authenticate(key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}
