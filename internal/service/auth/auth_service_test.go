package auth

import (
	"context"
	"testing"
	"time"

	"versus-be/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func newServiceForTest(t *testing.T) *Service {
	t.Helper()
	log, err := logger.New("error", "test")
	require.NoError(t, err)
	return NewService(testSecret, log).(*Service)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := newServiceForTest(t)

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "u1",
		"email": "u1@example.com",
		"name":  "Kullanıcı Bir",
		"role":  "user",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	participant, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", participant.ID)
	assert.Equal(t, "u1@example.com", participant.Email)
	assert.False(t, participant.IsAdmin)
}

func TestValidateTokenAdminRole(t *testing.T) {
	svc := newServiceForTest(t)

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "admin-1",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	participant, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, participant.IsAdmin)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newServiceForTest(t)

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := svc.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := newServiceForTest(t)

	token := signToken(t, "another-secret", jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := svc.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestValidateTokenMissingSubject(t *testing.T) {
	svc := newServiceForTest(t)

	token := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := svc.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newServiceForTest(t)

	_, err := svc.ValidateToken(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}
