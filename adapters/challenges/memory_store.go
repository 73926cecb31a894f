package challenges

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/agrilinka/auth-service/core"
	"github.com/agrilinka/auth-service/ports"
)

// NonceMessage is the exact string a wallet must sign. The client signs the
// full message including the prefix, byte for byte.
const NonceMessage = "Sign this nonce to authenticate: %s"

// DefaultChallengeTTL is how long an issued challenge stays valid.
const DefaultChallengeTTL = 3 * time.Minute

const nonceBytes = 16 // 128 bits of entropy

// MemoryStore keeps challenges in a mutex-guarded map. It is process-local:
// restarting loses all pending challenges (clients re-request) and a
// horizontally scaled deployment must use the Redis store instead, since a
// challenge issued by one instance is invisible to its peers.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]core.Challenge
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory challenge store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &MemoryStore{
		entries: make(map[string]core.Challenge),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock overrides the store's time source. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Issue generates a fresh 128-bit nonce for the wallet, overwriting any
// prior challenge. It never fails in practice: crypto/rand errors only when
// the OS entropy source is broken.
func (s *MemoryStore) Issue(_ context.Context, walletAddress string) (core.Challenge, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return core.Challenge{}, fmt.Errorf("generate nonce: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	challenge := core.Challenge{
		WalletAddress: walletAddress,
		Nonce:         fmt.Sprintf(NonceMessage, hex.EncodeToString(buf)),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
	}
	s.entries[walletAddress] = challenge
	return challenge, nil
}

// Consume returns the live challenge for the wallet without removing it.
// Expiry is enforced lazily: every call first sweeps all expired entries,
// whichever wallet they belong to, so entries for idle wallets linger until
// some verification triggers the sweep. There is no background timer.
func (s *MemoryStore) Consume(_ context.Context, walletAddress string) (core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	challenge, ok := s.entries[walletAddress]
	if !ok {
		return core.Challenge{}, core.ErrNoChallenge
	}
	return challenge, nil
}

// CompareAndDelete removes the wallet's challenge only if its nonce still
// matches, all under one lock. Of any concurrent callers holding the same
// challenge, exactly one observes true; the rest lost the race and must
// treat the attempt as failed.
func (s *MemoryStore) CompareAndDelete(_ context.Context, walletAddress, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.entries[walletAddress]
	if !ok || challenge.Nonce != nonce || challenge.Expired(s.now()) {
		return false, nil
	}
	delete(s.entries, walletAddress)
	return true, nil
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for wallet, challenge := range s.entries {
		if challenge.Expired(now) {
			delete(s.entries, wallet)
		}
	}
}

var _ ports.ChallengeStore = (*MemoryStore)(nil)
