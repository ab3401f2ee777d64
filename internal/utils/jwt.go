package utils

import (
	"errors"
	"os"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// Claims represents the JWT claims issued by the platform's auth service.
// Token issuance lives outside this engine; we only validate.
type Claims struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin"`
	jwt.StandardClaims
}

// getJWTSecret returns the JWT secret from environment variable or a default for development
func getJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Default secret for development only
		return "getyourshare_development_jwt_secret_key"
	}
	return secret
}

// ValidateToken validates a JWT token and returns its claims
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(getJWTSecret()), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
