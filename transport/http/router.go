package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrilinka/auth-service/service"
)

// SetupRouter wires the auth endpoints onto a Gin engine.
func SetupRouter(authService *service.AuthService) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.GET("/challenge", handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.GET("/me", AuthMiddleware(authService), handlers.Me)
	}

	return router
}
