package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with AgriLinka session fields.
type SessionClaims struct {
	jwt.RegisteredClaims
	WalletAddress string `json:"walletAddress,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role"`
}
