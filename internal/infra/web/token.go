package web

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ai-interview-platform/internal/usecase"
)

var _ usecase.SessionTokens = (*TokenManager)(nil)

// TokenManager mints the per-session capability credential as an HMAC JWT.
// The token identifier is stored on the session row; re-minting on every
// attach invalidates older credentials without any token state server-side.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func (m *TokenManager) Mint(sessionID string) (tokenID, signed string, err error) {
	now := time.Now()
	tokenID = uuid.NewString()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err = token.SignedString(m.secret)
	if err != nil {
		return "", "", err
	}
	return tokenID, signed, nil
}

func (m *TokenManager) Verify(signed string) (sessionID, tokenID string, err error) {
	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !tkn.Valid {
		return "", "", errors.New("invalid session token")
	}
	return claims.Subject, claims.ID, nil
}
