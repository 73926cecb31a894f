package ports

import "github.com/agrilinka/auth-service/core"

// SessionClaims is the payload embedded in a session credential.
type SessionClaims struct {
	Subject       string // user id
	WalletAddress string
	Email         string
	Role          string // uppercase
}

// Tokenizer issues and parses session credentials.
type Tokenizer interface {
	// IssueSession signs a session token for the user.
	IssueSession(user core.User) (string, error)

	// ParseSession validates a session token and returns its claims.
	// Returns core.ErrTokenExpired or core.ErrInvalidToken on failure.
	ParseSession(token string) (SessionClaims, error)
}
