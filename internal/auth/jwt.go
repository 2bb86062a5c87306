package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
)

// Claims defines the JWT claims structure. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// Option configures a TokenCodec.
type Option func(*TokenCodec)

// WithClock replaces time.Now for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// TokenCodec issues and verifies HS256 bearer tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec creates a codec signing with secret. Tokens expire ttl after
// issuance.
func NewTokenCodec(secret []byte, ttl time.Duration, opts ...Option) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue creates a signed token for the given user id.
func (c *TokenCodec) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("cannot issue token without a subject")
	}

	now := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns its claims. The error is one of
// ErrTokenMalformed, ErrTokenBadSignature or ErrTokenExpired.
//
// The HMAC is computed for every input, well-formed or not, before any
// verdict is returned.
func (c *TokenCodec) Verify(tokenStr string) (*Claims, error) {
	signingInput, sig := tokenStr, ""
	segments := strings.Count(tokenStr, ".") + 1
	if i := strings.LastIndexByte(tokenStr, '.'); i >= 0 {
		signingInput, sig = tokenStr[:i], tokenStr[i+1:]
	}

	sigBytes, decodeErr := base64.RawURLEncoding.Strict().DecodeString(sig)
	sigErr := jwt.SigningMethodHS256.Verify(signingInput, sigBytes, c.secret)

	if segments != 3 {
		return nil, ErrTokenMalformed
	}
	if decodeErr != nil || sigErr != nil {
		return nil, ErrTokenBadSignature
	}

	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	return claims, nil
}
