// Package auth issues and verifies the HS256 bearer tokens that identify
// the acting user. Password and session handling live outside this service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/models"
	"go.uber.org/zap"
)

// DefaultTokenTTL is how long an issued token stays valid
const DefaultTokenTTL = 24 * time.Hour

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims carried by a circle token
type Claims struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}

// TokenResponse is returned to a client after a token is issued
type TokenResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Service signs and validates tokens
type Service struct {
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a token service. A zero ttl uses DefaultTokenTTL.
func NewService(jwtSecret []byte, ttl time.Duration) (*Service, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{jwtSecret: jwtSecret, ttl: ttl, now: time.Now}, nil
}

// GenerateToken signs a token for user
func (s *Service) GenerateToken(user *models.User) (*TokenResponse, error) {
	if user == nil || user.ID == "" {
		return nil, errors.New("user id is required")
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := Claims{
		UserID:   user.ID,
		Nickname: user.Nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	logger.Log.Debug("Token issued", logger.WithUserID(user.ID), zap.Time("expires_at", expiresAt))
	return &TokenResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies signature and expiry and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
