package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrilinka/auth-service/core"
	"github.com/agrilinka/auth-service/ports"
	"github.com/agrilinka/auth-service/sigverify"
)

// AuthService orchestrates challenge issuance, signature verification and
// user provisioning. Both login paths (wallet and email/password) converge
// on the same tokenizer and user directory.
type AuthService struct {
	challenges ports.ChallengeStore
	directory  ports.UserDirectory
	tokenizer  ports.Tokenizer
	events     ports.EventPublisher
	log        zerolog.Logger
}

// NewAuthService creates the authenticator. events may be nil when no broker
// is configured; publishing is best-effort either way.
func NewAuthService(
	challenges ports.ChallengeStore,
	directory ports.UserDirectory,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		challenges: challenges,
		directory:  directory,
		tokenizer:  tokenizer,
		events:     events,
		log:        log,
	}
}

// RequestChallenge issues a fresh challenge for the wallet. Addresses are
// lowercased here once and treated as canonical everywhere downstream.
func (s *AuthService) RequestChallenge(ctx context.Context, walletAddress string) (core.Challenge, error) {
	wallet := strings.ToLower(strings.TrimSpace(walletAddress))
	challenge, err := s.challenges.Issue(ctx, wallet)
	if err != nil {
		return core.Challenge{}, fmt.Errorf("issue challenge: %w", err)
	}
	s.log.Debug().Str("wallet", wallet).Time("expires_at", challenge.ExpiresAt).Msg("challenge issued")
	return challenge, nil
}

// VerifyAndLogin checks a signed challenge and mints a session credential,
// lazily provisioning a user record on first login.
//
// The challenge is deleted only after the user upsert, so a directory
// failure leaves it intact for a retry. The delete is a compare-and-delete
// on the nonce: of any concurrent verifications racing on one challenge,
// exactly one proceeds to credential issuance.
func (s *AuthService) VerifyAndLogin(ctx context.Context, walletAddress, signature, publicKey string) (core.AuthResult, error) {
	wallet := strings.ToLower(strings.TrimSpace(walletAddress))

	challenge, err := s.challenges.Consume(ctx, wallet)
	if err != nil {
		if errors.Is(err, core.ErrNoChallenge) {
			s.log.Info().Str("wallet", wallet).Msg("login rejected: no valid challenge")
			return core.AuthResult{}, core.ErrNoChallenge
		}
		return core.AuthResult{}, fmt.Errorf("consume challenge: %w", err)
	}

	if !sigverify.Verify(wallet, challenge.Nonce, signature, publicKey) {
		s.log.Info().Str("wallet", wallet).Msg("login rejected: invalid signature")
		return core.AuthResult{}, core.ErrInvalidSignature
	}

	user, err := s.directory.GetByWallet(ctx, wallet)
	if errors.Is(err, core.ErrUserNotFound) {
		user, err = s.directory.CreateWalletUser(ctx, core.User{
			WalletAddress: wallet,
			Role:          core.RoleFarmer,
		})
		if err == nil {
			s.log.Info().Str("wallet", wallet).Str("user_id", user.ID).Msg("wallet user provisioned")
		}
	}
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("load wallet user: %w", err)
	}

	deleted, err := s.challenges.CompareAndDelete(ctx, wallet, challenge.Nonce)
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("delete challenge: %w", err)
	}
	if !deleted {
		// A concurrent verification for the same challenge won the race.
		s.log.Info().Str("wallet", wallet).Msg("login rejected: challenge already consumed")
		return core.AuthResult{}, core.ErrNoChallenge
	}

	token, err := s.tokenizer.IssueSession(user)
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("issue session: %w", err)
	}

	s.publishLogin(ctx, user.ID, wallet)
	return core.AuthResult{AccessToken: token, User: user.Sanitized()}, nil
}

// Register creates an email/password account and logs it in.
func (s *AuthService) Register(ctx context.Context, email, password, name, role string) (core.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return core.AuthResult{}, core.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.directory.Create(ctx, core.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         core.ParseRole(role),
	})
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			return core.AuthResult{}, core.ErrEmailTaken
		}
		return core.AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokenizer.IssueSession(user)
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("issue session: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	if s.events != nil {
		if err := s.events.PublishRegistered(ctx, user.ID, user.Email); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish registered event")
		}
	}
	return core.AuthResult{AccessToken: token, User: user.Sanitized()}, nil
}

// Login authenticates an email/password account.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return core.AuthResult{}, core.ErrInvalidCredentials
	}

	user, err := s.directory.GetByEmail(ctx, email)
	if errors.Is(err, core.ErrUserNotFound) {
		return core.AuthResult{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("load user: %w", err)
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Info().Str("user_id", user.ID).Msg("login rejected: bad password")
		return core.AuthResult{}, core.ErrInvalidCredentials
	}

	token, err := s.tokenizer.IssueSession(user)
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("issue session: %w", err)
	}

	s.publishLogin(ctx, user.ID, user.WalletAddress)
	return core.AuthResult{AccessToken: token, User: user.Sanitized()}, nil
}

// Profile loads the user a session token belongs to.
func (s *AuthService) Profile(ctx context.Context, token string) (core.User, error) {
	claims, err := s.tokenizer.ParseSession(token)
	if err != nil {
		return core.User{}, err
	}

	user, err := s.directory.GetByID(ctx, claims.Subject)
	if errors.Is(err, core.ErrUserNotFound) {
		return core.User{}, core.ErrInvalidToken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	return user.Sanitized(), nil
}

func (s *AuthService) publishLogin(ctx context.Context, userID, wallet string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLogin(ctx, userID, wallet); err != nil {
		// Publishing is best-effort: the credential is already issued.
		s.log.Warn().Err(err).Msg("failed to publish login event")
	}
}
