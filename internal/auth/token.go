package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"todo-summary/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "todo-summary-api"

var (
	// ErrInvalidSignature covers any token that does not verify: bad signature,
	// wrong algorithm, malformed input, or claims that do not describe a user.
	ErrInvalidSignature = errors.New("invalid token")
	// ErrExpired means the token verified but is past its expiry.
	ErrExpired = errors.New("token expired")
)

// Identity is the authenticated caller carried by a token.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Claims is the signed payload.
type Claims struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService returns a service signing with secret. There is no fallback
// secret: short or empty secrets are rejected.
func NewTokenService(secret string, ttl time.Duration, opts ...Option) (*TokenService, error) {
	if len(secret) < config.MinJWTSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d characters", config.MinJWTSecretBytes)
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	s := &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL is the lifetime given to issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for id that expires ttl after now.
func (s *TokenService) Issue(id Identity) (string, error) {
	if id.ID <= 0 {
		return "", errors.New("invalid user id")
	}
	now := s.now()
	claims := Claims{
		ID:       id.ID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and expiry and returns the embedded identity.
func (s *TokenService) Verify(token string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Identity{}, ErrExpired
	}
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.ID <= 0 || claims.Subject != strconv.FormatInt(claims.ID, 10) {
		return Identity{}, fmt.Errorf("%w: subject does not match user", ErrInvalidSignature)
	}
	return Identity{ID: claims.ID, Username: claims.Username}, nil
}
