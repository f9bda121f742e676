package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotify-bff/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultStateTTL bounds how long a login attempt may take to come back through the callback.
const DefaultStateTTL = 10 * time.Minute

const stateIssuer = "spotify-bff"

// StateIssuer mints and verifies the OAuth2 state parameter.
type StateIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateIssuer creates a [StateIssuer]. An empty secret is replaced with 32 random bytes
// hex encoded as the HMAC key, which invalidates outstanding states on restart.
func NewStateIssuer(secret string, ttl time.Duration) (*StateIssuer, error) {
	if secret == "" {
		generated, err := shared.RandomHex(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate state secret: %w", err)
		}
		secret = generated
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued states.
func (s *StateIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue returns a new signed state value. Every call yields a distinct value.
func (s *StateIssuer) Issue() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        shared.GenerateID(),
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks that state was issued by s, has not expired, and equals the value bound to the browser.
func (s *StateIssuer) Verify(state, bound string) error {
	if state == "" || bound == "" {
		return fmt.Errorf("%w: missing state", shared.ErrInvalidState)
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(bound)) != 1 {
		return fmt.Errorf("%w: state does not match this browser", shared.ErrInvalidState)
	}

	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: state expired", shared.ErrInvalidState)
		}
		return fmt.Errorf("%w: %v", shared.ErrInvalidState, err)
	}
	return nil
}
