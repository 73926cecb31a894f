package core

import (
	"strings"
	"time"
)

// Role classifies what a user can do on the marketplace.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
	RoleViewer Role = "viewer"
)

// ParseRole maps a client-supplied role string to a known Role,
// defaulting to RoleFarmer for anything unrecognized.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBuyer:
		return RoleBuyer
	case RoleViewer:
		return RoleViewer
	default:
		return RoleFarmer
	}
}

// Challenge is a one-time nonce a wallet must sign to authenticate.
// At most one live challenge exists per wallet address.
type Challenge struct {
	WalletAddress string    // lowercase, acts as the store key
	Nonce         string    // full instructional message the client signs
	IssuedAt      time.Time // when the challenge was created
	ExpiresAt     time.Time // when the challenge expires
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// User is an AgriLinka account. Wallet-provisioned users have no email or
// password; email/password users have no wallet until they link one.
type User struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	Email         string    `json:"email,omitempty"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name,omitempty"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitized returns a copy safe to hand to clients.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// AuthResult is what both login paths return on success.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}
