// internal/auth/token.go
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLen is the minimum signing secret size. Anything shorter is
// refused at construction so the process fails to start rather than run with
// a guessable key.
const MinSecretLen = 32

// DefaultTokenExpiry is how long a session token stays valid. There is no
// server-side revocation; expiry is the only deactivation mechanism.
const DefaultTokenExpiry = 7 * 24 * time.Hour

type TokenManager struct {
	secret       []byte
	expiryPeriod time.Duration
}

func NewTokenManager(secret string, expiryPeriod time.Duration) (*TokenManager, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("signing secret must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}
	if expiryPeriod <= 0 {
		expiryPeriod = DefaultTokenExpiry
	}
	return &TokenManager{
		secret:       []byte(secret),
		expiryPeriod: expiryPeriod,
	}, nil
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	OrgID  string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// Generate issues a signed session token for the user, optionally scoped to
// an organization.
func (tm *TokenManager) Generate(userID uuid.UUID, email string, orgID *uuid.UUID) (string, error) {
	claims := Claims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.expiryPeriod)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if orgID != nil {
		claims.OrgID = orgID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

func (tm *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
