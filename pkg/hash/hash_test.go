package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hashed)

	t.Run("matching password", func(t *testing.T) {
		assert.True(t, CheckPasswordHash("s3cret-pass", hashed))
	})

	t.Run("wrong password", func(t *testing.T) {
		assert.False(t, CheckPasswordHash("other", hashed))
	})

	t.Run("salted per call", func(t *testing.T) {
		again, err := HashPassword("s3cret-pass")
		require.NoError(t, err)
		assert.NotEqual(t, hashed, again)
	})
}
