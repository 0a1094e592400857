package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/auth"
)

func TestAutherLogin(t *testing.T) {
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	service := auth.NewTokenService([]byte("test-signing-key-test-signing-key"), 2, "chatvault-test", nil, nil)
	authenticator := auth.NewAuthenticator(users, service)
	ctx := context.Background()

	createActiveUser(t, db, "login@example.com", "the right password")

	t.Run("valid credentials mint a session", func(t *testing.T) {
		raw, err := authenticator.Login(ctx, "login@example.com", "the right password")
		require.NoError(t, err)

		claims, err := service.Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, "login@example.com", claims.Email())
		assert.NotEmpty(t, claims.UserID())
	})

	t.Run("identifier is normalized", func(t *testing.T) {
		_, err := authenticator.Login(ctx, "  LOGIN@example.com ", "the right password")
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := authenticator.Login(ctx, "login@example.com", "not the password")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("unknown account gets the same error as a bad password", func(t *testing.T) {
		_, err := authenticator.Login(ctx, "ghost@example.com", "whatever password")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})
}

func TestAutherLoginUnverified(t *testing.T) {
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	service := auth.NewTokenService([]byte("test-signing-key-test-signing-key"), 2, "chatvault-test", nil, nil)
	authenticator := auth.NewAuthenticator(users, service)
	ctx := context.Background()

	hash, err := auth.HashPassword("a perfectly fine password")
	require.NoError(t, err)

	_, err = users.Create(ctx, &auth.User{
		Email:          "pending@example.com",
		PasswordHash:   hash,
		EmailValidated: false,
		Active:         true,
	})
	require.NoError(t, err)

	_, err = authenticator.Login(ctx, "pending@example.com", "a perfectly fine password")
	assert.ErrorIs(t, err, auth.ErrAccountInactive)
}

func TestIdentityFromClaims(t *testing.T) {
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	service := auth.NewTokenService([]byte("test-signing-key-test-signing-key"), 2, "chatvault-test", nil, nil)
	authenticator := auth.NewAuthenticator(users, service)
	ctx := context.Background()

	user := createActiveUser(t, db, "subject@example.com", "a password of note")

	raw, err := service.Generate(user)
	require.NoError(t, err)

	claims, err := authenticator.SessionFromToken(raw)
	require.NoError(t, err)

	resolved, err := authenticator.IdentityFromClaims(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, "subject@example.com", resolved.Email)
}
