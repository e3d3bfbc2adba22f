// Package auth issues and verifies the HS256 access tokens of the API.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lorrc/avisos-backend/internal/core/domain"
)

const (
	// DefaultTokenTTL applies when no lifetime is configured.
	DefaultTokenTTL = 8 * time.Hour

	Issuer = "avisos"

	clockSkew = 30 * time.Second
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload. The identity fields let handlers answer
// /me without a database round trip.
type Claims struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// GenerateToken signs an access token for user.
func (tm *TokenManager) GenerateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, issuer and expiry. The jwt sentinel
// errors (jwt.ErrTokenExpired and friends) stay matchable.
func (tm *TokenManager) ValidateToken(raw string) (*Claims, error) {
	var claims Claims
	if _, err := tm.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return tm.secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
