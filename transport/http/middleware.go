package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agrilinka/auth-service/service"
)

const contextUserKey = "authUser"

// AuthMiddleware validates the bearer token and loads the user it belongs
// to into the request context.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		user, err := authService.Profile(c.Request.Context(), strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}
