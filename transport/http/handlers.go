package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrilinka/auth-service/core"
	"github.com/agrilinka/auth-service/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
}

func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// Challenge handles GET /auth/challenge?wallet=<address>.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet_required"})
		return
	}

	challenge, err := h.authService.RequestChallenge(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":    challenge.WalletAddress,
		"nonce":     challenge.Nonce,
		"expiresAt": challenge.ExpiresAt,
	})
}

// Verify handles POST /auth/verify.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Wallet    string `json:"wallet" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		PublicKey string `json:"publicKey"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.authService.VerifyAndLogin(c.Request.Context(), req.Wallet, req.Signature, req.PublicKey)
	if err != nil {
		// An expired challenge and one that never existed are reported
		// identically, so probing cannot reveal login activity.
		switch {
		case errors.Is(err, core.ErrNoChallenge):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no_valid_challenge"})
		case errors.Is(err, core.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Register handles POST /auth/register.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		case errors.Is(err, core.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Me handles GET /auth/me. The middleware has already loaded the user.
func (h *AuthHandlers) Me(c *gin.Context) {
	user, exists := c.Get(contextUserKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, user)
}
