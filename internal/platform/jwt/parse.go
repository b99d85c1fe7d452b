package jwtmw

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token has no user id")
)

// ParseUserID verifies tokenStr with secret and returns the user id in sub.
// Only HS256 tokens from Issuer with an expiry are accepted.
func ParseUserID(tokenStr, secret string) (uint, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims.UserID()
}

// EnvVerifier returns a verifier that reads JWT_SECRET on each call, the same
// way AuthRequired does.
func EnvVerifier() func(token string) (uint, error) {
	return func(token string) (uint, error) {
		secret := os.Getenv(EnvKeyJWTSecret)
		if secret == "" {
			return 0, fmt.Errorf("%w: %s is not set", ErrInvalidToken, EnvKeyJWTSecret)
		}
		return ParseUserID(token, secret)
	}
}
