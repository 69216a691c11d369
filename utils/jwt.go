package utils

import (
	"errors"
	"time"

	"Go_Shelf/config"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoJWTSecret means JWT_SECRET is unset or still the placeholder.
	ErrNoJWTSecret = errors.New("jwt secret not configured")
)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

const RoleAdmin = "admin"

// GenerateToken signs an admin session token valid for ttl.
func GenerateToken(username string, ttl time.Duration) (string, *Claims, error) {
	if !config.AppConfig.JWTConfigured() {
		return "", nil, ErrNoJWTSecret
	}
	now := time.Now()
	claims := &Claims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        GetToken(),
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// VerifyToken parses and validates a session token.
func VerifyToken(tokenString string) (*Claims, error) {
	if !config.AppConfig.JWTConfigured() {
		return nil, ErrNoJWTSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil || token == nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != RoleAdmin || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
