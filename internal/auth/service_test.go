package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/circle/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService([]byte("test_jwt_secret_key"), time.Hour)
	require.NoError(t, err)
	return s
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(nil, 0)
	assert.ErrorIs(t, err, ErrMissingSecret)

	s, err := NewService([]byte("k"), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, s.ttl)
}

func TestGenerateAndValidate(t *testing.T) {
	s := newTestService(t)
	user := &models.User{ID: "7d3c2a4e-1111-4c1e-9a55-0e6c5a1b2c3d", Nickname: "mei"}

	resp, err := s.GenerateToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "mei", resp.User.Nickname)

	claims, err := s.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, "mei", claims.Nickname)
}

func TestGenerateToken_RequiresUser(t *testing.T) {
	s := newTestService(t)
	_, err := s.GenerateToken(nil)
	assert.Error(t, err)
	_, err = s.GenerateToken(&models.User{})
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	s := newTestService(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }

	resp, err := s.GenerateToken(&models.User{ID: "u1"})
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = s.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	s := newTestService(t)
	other, err := NewService([]byte("another_secret"), time.Hour)
	require.NoError(t, err)

	resp, err := other.GenerateToken(&models.User{ID: "u1"})
	require.NoError(t, err)

	_, err = s.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	s := newTestService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_MissingUserID(t *testing.T) {
	s := newTestService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := token.SignedString([]byte("test_jwt_secret_key"))
	require.NoError(t, err)

	_, err = s.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
