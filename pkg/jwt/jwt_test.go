package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", "shortlink-service", 1)

	token, err := m.GenerateToken(42, "alice", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "shortlink-service", claims.Issuer)
}

func TestTokenManager_InvalidToken(t *testing.T) {
	m := NewManager("test-secret", "shortlink-service", 1)

	t.Run("篡改的令牌", func(t *testing.T) {
		token, err := m.GenerateToken(1, "bob", "user")
		require.NoError(t, err)
		_, err = m.ValidateToken(token + "x")
		assert.Error(t, err)
	})

	t.Run("密钥不匹配", func(t *testing.T) {
		other := NewManager("other-secret", "shortlink-service", 1)
		token, err := other.GenerateToken(1, "bob", "user")
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("随机字符串", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}
