package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agrilinka/auth-service/core"
	"github.com/agrilinka/auth-service/ports"
)

const AudienceSession = "agrilinka:session"

// DefaultSessionTTL matches the reference deployment's 7-day sessions.
const DefaultSessionTTL = 7 * 24 * time.Hour

// JWTTokenizer issues HS256 session tokens signed with a server secret.
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTTokenizer creates a tokenizer. ttl <= 0 selects DefaultSessionTTL.
func NewJWTTokenizer(secret []byte, ttl time.Duration) *JWTTokenizer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTTokenizer{secret: secret, ttl: ttl, now: time.Now}
}

// IssueSession signs a session token carrying the user's id, wallet, email
// and uppercase role.
func (j *JWTTokenizer) IssueSession(user core.User) (string, error) {
	now := j.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{AudienceSession},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
		WalletAddress: user.WalletAddress,
		Email:         user.Email,
		Role:          strings.ToUpper(string(user.Role)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseSession validates a session token's signature, audience and expiry.
func (j *JWTTokenizer) ParseSession(tokenStr string) (ports.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithAudience(AudienceSession), jwt.WithTimeFunc(func() time.Time { return j.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.SessionClaims{}, core.ErrTokenExpired
		}
		return ports.SessionClaims{}, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return ports.SessionClaims{}, core.ErrInvalidToken
	}

	return ports.SessionClaims{
		Subject:       claims.Subject,
		WalletAddress: claims.WalletAddress,
		Email:         claims.Email,
		Role:          claims.Role,
	}, nil
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)
