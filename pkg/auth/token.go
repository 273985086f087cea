package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSecret is returned when no signing secret is configured
	ErrMissingSecret = errors.New("token signing secret is not configured")
	// ErrTokenExpired is returned for a well-signed token past its expiry
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidSignature is returned when the signature does not match
	ErrInvalidSignature = errors.New("token signature is invalid")
	// ErrMalformedToken is returned when the token cannot be parsed
	ErrMalformedToken = errors.New("token is malformed")
	// ErrUnknownPrincipal is returned when no live user matches the claims
	ErrUnknownPrincipal = errors.New("unknown principal")
)

// Claims is the JWT payload. It names the principal and nothing else.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserLookup resolves token claims back to a live user.
type UserLookup interface {
	GetUserByIDAndUsername(ctx context.Context, id int64, username string) (*User, error)
}

// TokenIssuer issues and verifies HS256 bearer tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	users  UserLookup
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer. An empty secret is a configuration
// error.
func NewTokenIssuer(secret []byte, ttl time.Duration, users UserLookup) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: secret,
		ttl:    ttl,
		users:  users,
		now:    time.Now,
	}, nil
}

// TTL returns how long issued tokens stay valid.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for user
func (t *TokenIssuer) Issue(user *User) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ParseClaims checks signature, structure and expiry of raw and returns its
// claims without touching the user store.
func (t *TokenIssuer) ParseClaims(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.UserID == 0 || claims.Username == "" {
		return nil, fmt.Errorf("%w: missing id or username claim", ErrMalformedToken)
	}
	return claims, nil
}

// Verify resolves raw to the live user it was issued for.
func (t *TokenIssuer) Verify(ctx context.Context, raw string) (*User, error) {
	claims, err := t.ParseClaims(raw)
	if err != nil {
		return nil, err
	}

	user, err := t.users.GetUserByIDAndUsername(ctx, claims.UserID, claims.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	if user == nil {
		return nil, ErrUnknownPrincipal
	}
	return user, nil
}
