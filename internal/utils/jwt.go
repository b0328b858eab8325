package utils

import (
	"errors"
	"os"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// Claims represents the JWT claims minted by the identity provider
type Claims struct {
	ProfileID uuid.UUID `json:"profile_id"`
	Email     string    `json:"email"`
	jwt.StandardClaims
}

// getJWTSecret returns the JWT secret from environment variable or a
// default for development
func getJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "ticketwatch_development_jwt_secret"
	}
	return secret
}

// GenerateToken mints an access token. Production tokens come from the
// external identity provider; this is used by local development and
// tests.
func GenerateToken(profileID uuid.UUID, email string) (string, error) {
	claims := Claims{
		ProfileID: profileID,
		Email:     email,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(getJWTSecret()))
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(getJWTSecret()), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("failed to parse token claims")
	}

	return claims, nil
}
