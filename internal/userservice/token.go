package userservice

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid authentication token")
)

// claims mirrors the token body: {username, id, iat[, exp]}.
type claims struct {
	Username string `json:"username"`
	ID       string `json:"id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens. It is the only
// place that parses a presented token.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService returns a service signing with secret. A ttl of zero issues
// tokens without an expiry claim.
func NewTokenService(secret []byte, ttl time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret must be provided")
	}
	if ttl < 0 {
		return nil, errors.New("token ttl must not be negative")
	}

	return &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (s *TokenService) Issue(userID uuid.UUID, username string) (string, error) {
	now := s.now()

	c := claims{
		Username: username,
		ID:       userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify checks signature, algorithm, issue time and expiry and returns the
// embedded identity. With a ttl set, a token without exp is rejected. Every
// failure wraps ErrInvalidToken.
func (s *TokenService) Verify(token string) (*Identity, error) {
	c := &claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
	}
	// once a ttl is configured, tokens minted without one no longer pass
	if s.ttl > 0 {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	t, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !t.Valid {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(c.ID)
	if err != nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: malformed user id", ErrInvalidToken)
	}

	if c.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrInvalidToken)
	}

	return &Identity{UserID: id, Username: c.Username}, nil
}

// Anonymous returns the identity of a request that presented no valid token.
func Anonymous() *Identity {
	return &Identity{}
}

func (i *Identity) IsAnonymous() bool {
	return i == nil || i.UserID == uuid.Nil
}
