package utils

import (
	"fmt"
	"time"

	"meetsync/config"

	"github.com/golang-jwt/jwt"
)

// GenerateClientToken issues an HS256 token identifying the assistant client.
func GenerateClientToken(clientID string, ttl time.Duration) (string, error) {
	claims := jwt.StandardClaims{
		Subject:   clientID,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// VerifyClientToken validates a token and returns the client id it carries.
func VerifyClientToken(tokenStr string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}
