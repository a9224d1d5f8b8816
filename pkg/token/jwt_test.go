package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", 30, 7)

	t.Run("access token round trip", func(t *testing.T) {
		tok, err := m.GenerateToken(42, "farmer@example.com")
		require.NoError(t, err)

		claims, err := m.VerifyTokenOfType(tok, TypeAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "farmer@example.com", claims.Email)
		assert.Equal(t, "42", claims.Subject)
	})

	t.Run("refresh token rejected as access", func(t *testing.T) {
		tok, err := m.GenerateRefreshToken(42, "farmer@example.com")
		require.NoError(t, err)

		_, err = m.VerifyTokenOfType(tok, TypeAccess)
		assert.ErrorIs(t, err, ErrWrongTokenType)

		claims, err := m.VerifyTokenOfType(tok, TypeRefresh)
		require.NoError(t, err)
		assert.Equal(t, TypeRefresh, claims.TokenType)
	})

	t.Run("other secret", func(t *testing.T) {
		tok, err := NewJWTManager("another-secret", 30, 7).GenerateToken(1, "a@b.c")
		require.NoError(t, err)
		_, err = m.VerifyToken(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager("test-secret", -1, 7)
		tok, err := expired.GenerateToken(1, "a@b.c")
		require.NoError(t, err)
		_, err = m.VerifyToken(tok)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.VerifyToken("not-a-jwt")
		assert.Error(t, err)
	})
}
