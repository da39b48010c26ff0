package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestNewManager_EmptySecret(t *testing.T) {
	_, err := NewManager("", time.Hour, "")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestGenerateAndValidate(t *testing.T) {
	m, err := NewManager(testSecret, time.Hour, "delivery")
	require.NoError(t, err)

	token, err := m.Generate("u1", "admin")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, "admin", claims.Role())
	assert.Equal(t, "delivery", claims.Issuer)
}

func TestValidate_LegacyObjectID(t *testing.T) {
	m, err := NewManager(testSecret, 0, "")
	require.NoError(t, err)

	token := sign(t, testSecret, jwt.MapClaims{
		"user": map[string]interface{}{"_id": "64b7f0", "role": "user"},
	})

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0", claims.UserID())
	assert.Equal(t, "user", claims.Role())
}

func TestValidate_MissingRoleIsEmpty(t *testing.T) {
	m, _ := NewManager(testSecret, 0, "")
	token := sign(t, testSecret, jwt.MapClaims{"user": map[string]interface{}{"id": "u9"}})

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "", claims.Role())
}

func TestValidate_Errors(t *testing.T) {
	m, _ := NewManager(testSecret, 0, "")

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", sign(t, "other", jwt.MapClaims{"user": map[string]interface{}{"id": "u"}}), ErrInvalidToken},
		{"expired", sign(t, testSecret, jwt.MapClaims{
			"user": map[string]interface{}{"id": "u"},
			"exp":  time.Now().Add(-time.Minute).Unix(),
		}), ErrExpiredToken},
		{"no user", sign(t, testSecret, jwt.MapClaims{"sub": "u"}), ErrMissingUser},
		{"empty user id", sign(t, testSecret, jwt.MapClaims{"user": map[string]interface{}{"role": "admin"}}), ErrMissingUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Validate(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_RejectsNonHMAC(t *testing.T) {
	m, _ := NewManager(testSecret, 0, "")
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user": map[string]interface{}{"id": "u"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
