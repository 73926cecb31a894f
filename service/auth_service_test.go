package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/agrilinka/auth-service/adapters/challenges"
	"github.com/agrilinka/auth-service/adapters/directory"
	"github.com/agrilinka/auth-service/adapters/tokenizer"
	"github.com/agrilinka/auth-service/core"
)

type recordingPublisher struct {
	mu         sync.Mutex
	logins     int
	registered int
}

func (p *recordingPublisher) PublishLogin(_ context.Context, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins++
	return nil
}

func (p *recordingPublisher) PublishRegistered(_ context.Context, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered++
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc       *AuthService
	store     *challenges.MemoryStore
	directory *directory.MemoryDirectory
	events    *recordingPublisher
	clock     *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := challenges.NewMemoryStore(challenges.DefaultChallengeTTL)
	store.SetClock(clock.Now)

	dir := directory.NewMemoryDirectory()
	tok := tokenizer.NewJWTTokenizer([]byte("test-secret"), time.Hour)
	events := &recordingPublisher{}

	return &fixture{
		svc:       NewAuthService(store, dir, tok, events, zerolog.Nop()),
		store:     store,
		directory: dir,
		events:    events,
		clock:     clock,
	}
}

// ed25519Signer signs challenge messages the way a Hedera-native client does.
type ed25519Signer struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newEd25519Signer(t *testing.T) *ed25519Signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &ed25519Signer{pub: pub, priv: priv}
}

func (s *ed25519Signer) sign(message string) (signature, publicKey string) {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.priv, []byte(message))),
		base64.StdEncoding.EncodeToString(s.pub)
}

func TestWalletLoginFirstTimeProvisionsFarmer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signer := newEd25519Signer(t)

	challenge, err := f.svc.RequestChallenge(ctx, "0.0.54321")
	require.NoError(t, err)

	sig, pub := signer.sign(challenge.Nonce)
	result, err := f.svc.VerifyAndLogin(ctx, "0.0.54321", sig, pub)
	require.NoError(t, err)

	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, core.RoleFarmer, result.User.Role)
	require.Equal(t, "0.0.54321", result.User.WalletAddress)
	require.Empty(t, result.User.PasswordHash)
	require.Empty(t, result.User.Email)
	require.Equal(t, 1, f.directory.Count())
	require.Equal(t, 1, f.events.logins)
}

func TestWalletLoginECDSA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := f.svc.RequestChallenge(ctx, address)
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Nonce)), key)
	require.NoError(t, err)
	sig[64] += 27

	result, err := f.svc.VerifyAndLogin(ctx, address, hexutil.Encode(sig), "")
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(address), result.User.WalletAddress)
}

func TestWalletLoginIdempotentReLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signer := newEd25519Signer(t)

	for i := 0; i < 2; i++ {
		challenge, err := f.svc.RequestChallenge(ctx, "0.0.54321")
		require.NoError(t, err)
		sig, pub := signer.sign(challenge.Nonce)
		_, err = f.svc.VerifyAndLogin(ctx, "0.0.54321", sig, pub)
		require.NoError(t, err)
	}

	require.Equal(t, 1, f.directory.Count())
}

func TestWalletLoginCaseInsensitiveAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := f.svc.RequestChallenge(ctx, strings.ToUpper(address))
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Nonce)), key)
	require.NoError(t, err)
	sig[64] += 27

	result, err := f.svc.VerifyAndLogin(ctx, strings.ToLower(address), hexutil.Encode(sig), "")
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(address), result.User.WalletAddress)
	require.Equal(t, 1, f.directory.Count())
}

func TestWalletLoginExpiredChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signer := newEd25519Signer(t)

	challenge, err := f.svc.RequestChallenge(ctx, "0.0.54321")
	require.NoError(t, err)
	sig, pub := signer.sign(challenge.Nonce)

	f.clock.Advance(181 * time.Second)

	_, err = f.svc.VerifyAndLogin(ctx, "0.0.54321", sig, pub)
	require.ErrorIs(t, err, core.ErrNoChallenge)
}

func TestWalletLoginReplayRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signer := newEd25519Signer(t)

	challenge, err := f.svc.RequestChallenge(ctx, "0.0.54321")
	require.NoError(t, err)
	sig, pub := signer.sign(challenge.Nonce)

	_, err = f.svc.VerifyAndLogin(ctx, "0.0.54321", sig, pub)
	require.NoError(t, err)

	// Same (wallet, signature) pair again: the challenge is consumed.
	_, err = f.svc.VerifyAndLogin(ctx, "0.0.54321", sig, pub)
	require.ErrorIs(t, err, core.ErrNoChallenge)
}

func TestWalletLoginSecondIssueInvalidatesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signer := newEd25519Signer(t)

	first, err := f.svc.RequestChallenge(ctx, "0.0.54321")
	require.NoError(t, err)
	sig, pub := signer.sign(first.Nonce)

	_, err = f.svc.RequestChallenge(ctx, "0.0.54321")
	require.NoError(t, err)

	// The signature was produced against the first nonce; only the second
	// is live now.
	_, err = f.svc.VerifyAndLogin(ctx, "0.0.54321", sig, pub)
	require.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestWalletLoginBadSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signer := newEd25519Signer(t)

	challenge, err := f.svc.RequestChallenge(ctx, "0.0.54321")
	require.NoError(t, err)

	// Signature over a different message.
	sig, pub := signer.sign(challenge.Nonce + "tampered")
	_, err = f.svc.VerifyAndLogin(ctx, "0.0.54321", sig, pub)
	require.ErrorIs(t, err, core.ErrInvalidSignature)

	// The challenge survives a failed attempt; a correct signature still works.
	sig, pub = signer.sign(challenge.Nonce)
	_, err = f.svc.VerifyAndLogin(ctx, "0.0.54321", sig, pub)
	require.NoError(t, err)
}

func TestWalletLoginNoChallengeRequested(t *testing.T) {
	f := newFixture(t)
	signer := newEd25519Signer(t)

	sig, pub := signer.sign("anything")
	_, err := f.svc.VerifyAndLogin(context.Background(), "0.0.54321", sig, pub)
	require.ErrorIs(t, err, core.ErrNoChallenge)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, "amina@example.com", "s3cret-pw", "Amina", "buyer")
	require.NoError(t, err)
	require.NotEmpty(t, reg.AccessToken)
	require.Equal(t, core.RoleBuyer, reg.User.Role)
	require.Empty(t, reg.User.PasswordHash)
	require.Equal(t, 1, f.events.registered)

	login, err := f.svc.Login(ctx, "Amina@Example.com", "s3cret-pw")
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, login.User.ID)
	require.Empty(t, login.User.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "amina@example.com", "s3cret-pw", "Amina", "")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "amina@example.com", "other-pw", "Imposter", "")
	require.ErrorIs(t, err, core.ErrEmailTaken)
}

func TestLoginBadPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "amina@example.com", "s3cret-pw", "Amina", "")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "amina@example.com", "wrong")
	require.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestLoginEmptyCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "", "anything")
	require.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "amina@example.com", "")
	require.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestProfileRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, "amina@example.com", "s3cret-pw", "Amina", "viewer")
	require.NoError(t, err)

	user, err := f.svc.Profile(ctx, reg.AccessToken)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, user.ID)
	require.Equal(t, core.RoleViewer, user.Role)
	require.Empty(t, user.PasswordHash)
}

func TestProfileRejectsGarbageToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Profile(context.Background(), "not.a.token")
	require.ErrorIs(t, err, core.ErrInvalidToken)
}
