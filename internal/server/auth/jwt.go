// Package auth issues and verifies the signed session tokens carried in the
// browser cookie and hashes local account passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity snapshot embedded in a session token.
// Local sign-in fills Username, federated sign-in fills Name.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// TokenService signs and verifies HS256 session tokens with a single
// process-wide secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret []byte) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	return &TokenService{secret: secret, now: time.Now}, nil
}

// Sign returns a compact token for claims that expires ttl from now.
// Registered claims set by the caller are overwritten.
func (s *TokenService) Sign(claims Claims, ttl time.Duration) (string, error) {
	if claims.UserID == "" {
		return "", errors.New("claims without user id")
	}

	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks signature, algorithm and expiry and returns the embedded
// claims. Every failure wraps common.ErrUnauthorized; the cause stays in the
// chain for logs only.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", common.ErrUnauthorized)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid claims", common.ErrUnauthorized)
	}

	return claims, nil
}
