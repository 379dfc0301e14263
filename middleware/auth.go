package middleware

import (
	"net/http"
	"strings"

	"meetsync/utils"

	"github.com/gin-gonic/gin"
)

// ClientAuthMiddleware validates the bearer token issued at session start
// and puts the client id on the request context.
func ClientAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		clientID, err := utils.VerifyClientToken(tokenString)
		if err != nil || clientID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("clientID", clientID)
		c.Next()
	}
}
