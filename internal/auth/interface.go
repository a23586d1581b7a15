package auth

import "github.com/zfogg/circle/internal/models"

// TokenServiceInterface defines the contract for token operations.
// This enables mocking in middleware and handler tests.
type TokenServiceInterface interface {
	GenerateToken(user *models.User) (*TokenResponse, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Ensure Service implements TokenServiceInterface
var _ TokenServiceInterface = (*Service)(nil)
