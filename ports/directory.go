package ports

import (
	"context"

	"github.com/agrilinka/auth-service/core"
)

// UserDirectory is the relational store of AgriLinka accounts.
type UserDirectory interface {
	// GetByWallet returns the user owning the given lowercase wallet
	// address, or core.ErrUserNotFound.
	GetByWallet(ctx context.Context, walletAddress string) (core.User, error)

	// GetByEmail returns the user registered under the email,
	// or core.ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (core.User, error)

	// GetByID returns the user by its opaque identifier,
	// or core.ErrUserNotFound.
	GetByID(ctx context.Context, id string) (core.User, error)

	// Create inserts a new email/password user. Returns core.ErrEmailTaken
	// when the email is already registered.
	Create(ctx context.Context, user core.User) (core.User, error)

	// CreateWalletUser provisions a user for a wallet address, returning
	// the existing user when one already owns the address. Concurrent
	// first logins for the same wallet yield exactly one row.
	CreateWalletUser(ctx context.Context, user core.User) (core.User, error)
}
