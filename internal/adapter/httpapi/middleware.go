package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware returns a gin middleware that validates the authorization
// token from the request header.
// If the token is missing or invalid, it aborts with 401 Unauthorized.
// If valid, the request proceeds unchanged.
func AuthMiddleware(validToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		if token != validToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Next()
	}
}
