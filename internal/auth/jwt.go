// Package auth validates the bearer tokens issued by the identity service.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourorg/amity/pkg/apperr"
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseBearer extracts the token from an Authorization header.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", apperr.Unauthorized("authorization header empty")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperr.Unauthorized("invalid authorization header format")
	}
	return parts[1], nil
}

type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Validate parses an HMAC-signed token and returns its user id.
func (v *Validator) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return "", apperr.Unauthorized("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", apperr.Unauthorized("invalid token")
	}
	return claims.UserID, nil
}
