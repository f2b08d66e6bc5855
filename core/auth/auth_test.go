package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.GenerateToken("user-123", "test@example.com")
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestParseToken_Table(t *testing.T) {
	secret := []byte("secret")
	m := NewTokenManager(string(secret), time.Hour)
	now := time.Now()

	sign := func(claims TokenClaims, method jwt.SigningMethod, key interface{}) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	valid := TokenClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}
	expired := TokenClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour))}}
	anonymous := TokenClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", sign(valid, jwt.SigningMethodHS256, secret), false},
		{"expired", sign(expired, jwt.SigningMethodHS256, secret), true},
		{"wrong secret", sign(valid, jwt.SigningMethodHS256, []byte("other")), true},
		{"wrong algorithm", sign(valid, jwt.SigningMethodHS512, secret), true},
		{"no user id", sign(anonymous, jwt.SigningMethodHS256, secret), true},
		{"garbage", "not.a.token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ParseToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewTokenManager_EmptySecretDisablesAuth(t *testing.T) {
	assert.Nil(t, NewTokenManager("", time.Hour))
}

func TestWithTTL(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	short := m.WithTTL(time.Minute)

	token, err := short.GenerateToken("u1", "")
	require.NoError(t, err)
	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)

	assert.Same(t, m, m.WithTTL(0))
	var disabled *TokenManager
	assert.Nil(t, disabled.WithTTL(time.Minute))
}
