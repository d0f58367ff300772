package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTTL = 24 * time.Hour

// Principal is the authenticated identity every pipeline entry point and
// connection session requires. Username doubles as the registry key.
type Principal struct {
	UserID   uuid.UUID
	Username string
}

type CustomClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates the bearer tokens the rest of the server
// treats as an opaque credential.
type TokenIssuer struct {
	key []byte
}

func NewTokenIssuer(key string) *TokenIssuer {
	if key == "" {
		log.Printf("[AUTH] WARNING: signing key is empty!")
	}
	return &TokenIssuer{key: []byte(key)}
}

func (t *TokenIssuer) Generate(userID uuid.UUID, username string) (string, error) {
	expiresAt := time.Now().Add(tokenTTL)

	claims := &CustomClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "driftchat",
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(t.key)
	if err != nil {
		log.Printf("[AUTH] ERROR: Failed to sign token for user %s: %v", userID, err)
		return "", err
	}

	return tokenString, nil
}

func (t *TokenIssuer) Validate(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(tk *jwt.Token) (any, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			errDetail := fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
			log.Printf("[AUTH] VALIDATION FAILED: %v", errDetail)
			return nil, errDetail
		}
		return t.key, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return &Principal{UserID: claims.UserID, Username: claims.Username}, nil
}
