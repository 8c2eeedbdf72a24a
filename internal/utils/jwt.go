// internal/utils/jwt.go
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const sessionIssuer = "storefront"

type SessionClaims struct {
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a cookie value carrying the session key as subject.
func GenerateSessionToken(secret []byte, sessionKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    sessionIssuer,
			Subject:   sessionKey,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateSessionToken returns the session key of a valid, unexpired token.
func ValidateSessionToken(secret []byte, tokenString string) (string, error) {
	claims, err := ParseSessionToken(secret, tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ParseSessionToken verifies a token and returns its claims.
func ParseSessionToken(secret []byte, tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session token")
	}
	if claims.Issuer != sessionIssuer || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, errors.New("invalid session token")
	}

	return claims, nil
}
