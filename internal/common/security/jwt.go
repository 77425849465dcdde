package security

import (
	"authgate/internal/common"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSigningKeyLength is the shortest HS256 key accepted, in bytes.
const MinSigningKeyLength = 32

var ErrWeakSigningKey = fmt.Errorf("signing key must be at least %d bytes", MinSigningKeyLength)

// TokenService issues and validates HS256 identity tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	key      []byte
	validity time.Duration
	now      func() time.Time
}

type TokenOption func(*TokenService)

// WithClock replaces time.Now as the source of issue and validation times.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(key []byte, validity time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(key) < MinSigningKeyLength {
		return nil, ErrWeakSigningKey
	}
	if validity <= 0 {
		return nil, errors.New("token validity must be positive")
	}

	s := &TokenService{
		key:      append([]byte(nil), key...),
		validity: validity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue returns a signed token for subject, valid from now for the
// configured validity window.
func (s *TokenService) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is empty")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Validate reports whether token carries a valid signature for the
// process key and has not yet expired. A token is expired at the
// instant exp == now.
func (s *TokenService) Validate(token string) bool {
	_, err := s.parse(token)
	return err == nil
}

// ExtractSubject returns the subject of token. Callers must Validate
// first; a token that does not parse returns ErrInvalidOrExpiredToken.
func (s *TokenService) ExtractSubject(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *TokenService) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, common.ErrInvalidOrExpiredToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidOrExpiredToken, err)
	}

	if claims.Subject == "" || !claims.ExpiresAt.After(s.now()) {
		return nil, common.ErrInvalidOrExpiredToken
	}
	return claims, nil
}

func (s *TokenService) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return s.key, nil
}
