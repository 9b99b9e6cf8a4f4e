package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	token, err := GenerateToken("admin@lilinku.id", "admin", "test-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "test-secret")
	require.NoError(t, err)

	assert.Equal(t, "admin@lilinku.id", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("admin@lilinku.id", "admin", "test-secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "another-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken("admin@lilinku.id", "admin", "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "test-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", "test-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("sekali-lagi-123")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "sekali-lagi-123"))
	assert.False(t, CheckPassword(hash, "salah"))
	assert.False(t, CheckPassword("not-a-hash", "sekali-lagi-123"))
}
