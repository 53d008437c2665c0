package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vnkhanh/podcastr-backend/users"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims is the session token payload. Subject carries the identity key.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() users.Identity {
	return users.Identity{Key: c.Subject, Name: c.Name, Email: c.Email, AvatarURL: c.Picture}
}

// GenerateToken signs an HS256 session token for ident.
func GenerateToken(secret []byte, ident users.Identity, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	if ident.Anonymous() {
		return "", errors.New("cannot issue a token without an identity")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := Claims{
		Name:    ident.Name,
		Email:   ident.Email,
		Picture: ident.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.Key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyToken parses and validates a session token.
func VerifyToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
