package ports

import (
	"context"

	"github.com/agrilinka/auth-service/core"
)

// ChallengeStore holds at most one outstanding nonce per wallet address.
//
// Consume is deliberately non-destructive: the verification flow deletes the
// challenge only after the user record has been provisioned, so a failed
// provisioning leaves the challenge intact for a retry. CompareAndDelete is
// the atomic replay gate: of any number of concurrent verifications holding
// the same challenge, exactly one observes true.
type ChallengeStore interface {
	// Issue creates and stores a fresh challenge for the wallet,
	// overwriting any prior one. It always succeeds.
	Issue(ctx context.Context, walletAddress string) (core.Challenge, error)

	// Consume returns the live challenge for the wallet, or
	// core.ErrNoChallenge if none exists or it has expired.
	Consume(ctx context.Context, walletAddress string) (core.Challenge, error)

	// CompareAndDelete removes the stored challenge only if its nonce still
	// matches, reporting whether this caller performed the removal.
	CompareAndDelete(ctx context.Context, walletAddress, nonce string) (bool, error)
}
