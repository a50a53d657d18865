package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/life-journal/internal/apperror"
)

// issuer is stamped on every locally minted token and required on validation,
// so tokens from other services signed with a shared secret are refused.
const issuer = "life-journal"

// DefaultTokenTTL is the lifetime of tokens minted by Generate.
const DefaultTokenTTL = 24 * time.Hour

// TokenService mints and validates HS256 tokens whose subject is an email.
// It is the AUTH_PROVIDER=jwt alternative to Firebase, used for local
// development and by cmd/devtoken.
//
// The same secret must be used for both operations.
type TokenService struct {
	secret []byte
}

var _ Verifier = (*TokenService)(nil)

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. "sub" carries the user's email.
type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a token for email valid for DefaultTokenTTL.
func (s *TokenService) Generate(email string) (string, error) {
	return s.GenerateWithDuration(email, DefaultTokenTTL)
}

// GenerateWithDuration signs a token with a custom lifetime. A negative d
// yields an already expired token, which the tests rely on.
func (s *TokenService) GenerateWithDuration(email string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its subject.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "life-journal"
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}

// Verify implements Verifier. Every validation failure is Unauthorized.
func (s *TokenService) Verify(_ context.Context, token string) (string, error) {
	email, err := s.Validate(token)
	if err != nil {
		return "", apperror.Unauthorized(err.Error())
	}
	return email, nil
}
