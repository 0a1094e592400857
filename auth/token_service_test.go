package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/auth"
)

type staticIdentity struct {
	id    string
	email string
}

func (s staticIdentity) GetID() string    { return s.id }
func (s staticIdentity) GetEmail() string { return s.email }

func TestTokenService_GenerateAndValidate(t *testing.T) {
	signingKey := []byte("test-signing-key-test-signing-key")
	issuer := "chatvault-test"
	audience := jwt.ClaimStrings{"chatvault-test"}

	service := auth.NewTokenService(signingKey, 24, issuer, audience, nil)

	identity := staticIdentity{
		id:    "0193b2c0-0000-7000-8000-000000000001",
		email: "a@example.com",
	}

	raw, err := service.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := service.Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", claims.Subject())
	assert.Equal(t, "a@example.com", claims.Email())
	assert.Equal(t, identity.id, claims.UserID())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.Expires(), time.Minute)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt(), time.Minute)
}

func TestTokenService_ValidateFailures(t *testing.T) {
	signingKey := []byte("test-signing-key-test-signing-key")
	issuer := "chatvault-test"
	audience := jwt.ClaimStrings{"chatvault-test"}

	identity := staticIdentity{id: "uid-1", email: "a@example.com"}

	t.Run("expired session", func(t *testing.T) {
		expiredService := auth.NewTokenService(signingKey, -1, issuer, audience, nil)
		raw, err := expiredService.Generate(identity)
		require.NoError(t, err)

		_, err = expiredService.Validate(raw)
		assert.ErrorIs(t, err, auth.ErrSessionExpired)
		assert.True(t, auth.IsTokenExpiredError(err))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		service := auth.NewTokenService(signingKey, 24, issuer, audience, nil)
		raw, err := service.Generate(identity)
		require.NoError(t, err)

		other := auth.NewTokenService([]byte("another-key-entirely-another-key"), 24, issuer, audience, nil)
		_, err = other.Validate(raw)
		assert.ErrorIs(t, err, auth.ErrSignatureInvalid)
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		service := auth.NewTokenService(signingKey, 24, issuer, audience, nil)
		_, err := service.Validate("not.a.jwt")
		require.Error(t, err)
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		service := auth.NewTokenService(signingKey, 24, issuer, audience, nil)
		raw, err := service.Generate(identity)
		require.NoError(t, err)

		strict := auth.NewTokenService(signingKey, 24, "someone-else", audience, nil)
		_, err = strict.Validate(raw)
		assert.Error(t, err)
	})
}
