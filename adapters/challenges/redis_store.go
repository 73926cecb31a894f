package challenges

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrilinka/auth-service/core"
	"github.com/agrilinka/auth-service/ports"
)

// RedisStore externalizes challenges to Redis so a horizontally scaled
// deployment shares one challenge space. Expiry uses native Redis TTLs, so
// unlike the memory store there is no lazy sweep: expired entries are
// reclaimed eagerly by Redis itself.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed challenge store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &RedisStore{
		client: client,
		prefix: "agrilinka:challenge:",
		ttl:    ttl,
	}
}

type redisChallenge struct {
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// compareAndDeleteScript deletes the challenge only when the stored nonce
// still matches, atomically on the Redis side.
var compareAndDeleteScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v and cjson.decode(v)['nonce'] == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
return 0
`)

func (s *RedisStore) Issue(ctx context.Context, walletAddress string) (core.Challenge, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return core.Challenge{}, fmt.Errorf("generate nonce: %w", err)
	}

	now := time.Now()
	challenge := core.Challenge{
		WalletAddress: walletAddress,
		Nonce:         fmt.Sprintf(NonceMessage, hex.EncodeToString(buf)),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
	}

	payload, err := json.Marshal(redisChallenge{
		Nonce:     challenge.Nonce,
		IssuedAt:  challenge.IssuedAt,
		ExpiresAt: challenge.ExpiresAt,
	})
	if err != nil {
		return core.Challenge{}, fmt.Errorf("encode challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+walletAddress, payload, s.ttl).Err(); err != nil {
		return core.Challenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return challenge, nil
}

func (s *RedisStore) Consume(ctx context.Context, walletAddress string) (core.Challenge, error) {
	raw, err := s.client.Get(ctx, s.prefix+walletAddress).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Challenge{}, core.ErrNoChallenge
	}
	if err != nil {
		return core.Challenge{}, fmt.Errorf("load challenge: %w", err)
	}

	var stored redisChallenge
	if err := json.Unmarshal(raw, &stored); err != nil {
		return core.Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}

	return core.Challenge{
		WalletAddress: walletAddress,
		Nonce:         stored.Nonce,
		IssuedAt:      stored.IssuedAt,
		ExpiresAt:     stored.ExpiresAt,
	}, nil
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, walletAddress, nonce string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, s.client, []string{s.prefix + walletAddress}, nonce).Int()
	if err != nil {
		return false, fmt.Errorf("delete challenge: %w", err)
	}
	return n == 1, nil
}

var _ ports.ChallengeStore = (*RedisStore)(nil)
