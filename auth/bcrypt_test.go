package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/auth"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies", func(t *testing.T) {
		hash, err := auth.HashPassword("correct horse battery staple")
		require.NoError(t, err)
		assert.NotEqual(t, "correct horse battery staple", hash)

		assert.NoError(t, auth.ComparePasswordAndHash("correct horse battery staple", hash))
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})

	t.Run("mismatch yields credentials error", func(t *testing.T) {
		hash, err := auth.HashPassword("one password")
		require.NoError(t, err)

		err = auth.ComparePasswordAndHash("another password", hash)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("same input produces distinct hashes", func(t *testing.T) {
		first, err := auth.HashPassword("repeatable")
		require.NoError(t, err)
		second, err := auth.HashPassword("repeatable")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})
}
