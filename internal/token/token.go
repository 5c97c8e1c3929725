// Package token issues and verifies stateless bearer tokens. Tokens are
// never persisted; validity is a pure function of the signature, the
// embedded expiry and the service secret.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalid covers malformed tokens, bad signatures and expired claims.
// Callers are not told which check failed.
var ErrInvalid = errors.New("token is invalid or has expired")

// Claims is the payload encoded inside a token: subject, issued-at and
// expiry.
type Claims struct {
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens with a fixed TTL.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service. ttl is the lifetime encoded into
// every issued token.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given subject with issuedAt=now and the
// configured expiry.
func (s *Service) Issue(subject uuid.UUID) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry, returning the subject and the
// issue time. Any failure is reported as ErrInvalid.
func (s *Service) Verify(tokenString string) (uuid.UUID, time.Time, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil, time.Time{}, ErrInvalid
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, time.Time{}, ErrInvalid
	}
	if claims.IssuedAt == nil {
		return uuid.Nil, time.Time{}, ErrInvalid
	}
	return subject, claims.IssuedAt.Time, nil
}
