package auth_test

import (
	"context"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/auth"
)

func TestRegistrationLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenManager(repo.ActionTokens())
	notifier := auth.NewLogNotifier(nil)
	ctx := context.Background()

	var tokenID string

	request := auth.NewRegisterRequestHandler(repo, tokens, notifier)
	err := request.Execute(ctx, auth.RegisterRequestMessage{
		Email: "A@Example.com",
		OnResponse: func(resp *auth.RegisterRequestResponse) {
			tokenID = resp.TokenID
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)

	t.Run("no user record exists before finalize", func(t *testing.T) {
		_, err := repo.Users().GetActiveByEmail(ctx, "a@example.com")
		assert.Error(t, err)
	})

	var created *auth.User
	finalize := auth.NewRegisterFinalizeHandler(repo, tokens)
	err = finalize.Execute(ctx, auth.RegisterFinalizeMessage{
		Token:    tokenID,
		Password: "a long enough password",
		OnResponse: func(user *auth.User) {
			created = user
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	t.Run("created user is active and verified with a deterministic id", func(t *testing.T) {
		assert.Equal(t, "a@example.com", created.Email)
		assert.True(t, created.Active)
		assert.True(t, created.EmailValidated)

		expected, err := hashid.NewUUID("a@example.com")
		require.NoError(t, err)
		assert.Equal(t, expected, created.ID)
	})

	t.Run("spent token cannot finalize again", func(t *testing.T) {
		err := finalize.Execute(ctx, auth.RegisterFinalizeMessage{
			Token:    tokenID,
			Password: "a long enough password",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("second registration request is rejected", func(t *testing.T) {
		err := request.Execute(ctx, auth.RegisterRequestMessage{Email: "a@example.com"})
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})
}

func TestRegistrationDuplicateFinalize(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenManager(repo.ActionTokens())
	notifier := auth.NewLogNotifier(nil)
	ctx := context.Background()

	// two requests race before either finalizes, so two live tokens exist
	request := auth.NewRegisterRequestHandler(repo, tokens, notifier)

	var first, second string
	err := request.Execute(ctx, auth.RegisterRequestMessage{
		Email:      "dup@example.com",
		OnResponse: func(resp *auth.RegisterRequestResponse) { first = resp.TokenID },
	})
	require.NoError(t, err)
	err = request.Execute(ctx, auth.RegisterRequestMessage{
		Email:      "dup@example.com",
		OnResponse: func(resp *auth.RegisterRequestResponse) { second = resp.TokenID },
	})
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	finalize := auth.NewRegisterFinalizeHandler(repo, tokens)

	err = finalize.Execute(ctx, auth.RegisterFinalizeMessage{
		Token:    first,
		Password: "a long enough password",
	})
	require.NoError(t, err)

	// the loser holds a valid token but the identity is now taken
	err = finalize.Execute(ctx, auth.RegisterFinalizeMessage{
		Token:    second,
		Password: "a long enough password",
	})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestRegistrationConcurrentFinalize(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenManager(repo.ActionTokens())
	notifier := auth.NewLogNotifier(nil)
	ctx := context.Background()

	// several live tokens for the same email, each redeemed from its own
	// goroutine so the finalizers truly race on the terminal write
	request := auth.NewRegisterRequestHandler(repo, tokens, notifier)

	const racers = 4
	tokenIDs := make([]string, racers)
	for i := range tokenIDs {
		err := request.Execute(ctx, auth.RegisterRequestMessage{
			Email:      "race@example.com",
			OnResponse: func(resp *auth.RegisterRequestResponse) { tokenIDs[i] = resp.TokenID },
		})
		require.NoError(t, err)
		require.NotEmpty(t, tokenIDs[i])
	}

	finalize := auth.NewRegisterFinalizeHandler(repo, tokens)

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = finalize.Execute(ctx, auth.RegisterFinalizeMessage{
				Token:    tokenIDs[i],
				Password: "a long enough password",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}

		var richErr *goerrors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, auth.TextCodeEmailTaken, richErr.TextCode)
	}
	assert.Equal(t, 1, winners, "exactly one concurrent registration wins")

	count, err := db.NewSelect().Model((*auth.User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReRegistrationAfterDeletion(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenManager(repo.ActionTokens())
	notifier := auth.NewLogNotifier(nil)
	ctx := context.Background()

	request := auth.NewRegisterRequestHandler(repo, tokens, notifier)
	finalize := auth.NewRegisterFinalizeHandler(repo, tokens)

	register := func(t *testing.T, password string) *auth.User {
		t.Helper()

		var tokenID string
		err := request.Execute(ctx, auth.RegisterRequestMessage{
			Email:      "comeback@example.com",
			OnResponse: func(resp *auth.RegisterRequestResponse) { tokenID = resp.TokenID },
		})
		require.NoError(t, err)

		var created *auth.User
		err = finalize.Execute(ctx, auth.RegisterFinalizeMessage{
			Token:      tokenID,
			Password:   password,
			OnResponse: func(user *auth.User) { created = user },
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		return created
	}

	first := register(t, "the original password")

	var deleteToken string
	initialize := auth.NewInitializeAccountDeleteHandler(repo, tokens, notifier)
	err := initialize.Execute(ctx, auth.InitializeAccountDeleteMessage{
		Email:      "comeback@example.com",
		OnResponse: func(resp *auth.InitializeAccountDeleteResponse) { deleteToken = resp.TokenID },
	})
	require.NoError(t, err)

	deleteFinalize := auth.NewFinalizeAccountDeleteHandler(repo, tokens)
	require.NoError(t, deleteFinalize.Execute(ctx, auth.FinalizeAccountDeleteMessage{Token: deleteToken}))

	// deletion frees the email and its deterministic id for a fresh start
	second := register(t, "a different password")
	assert.Equal(t, first.ID, second.ID)

	t.Run("only the new credentials log in", func(t *testing.T) {
		service := auth.NewTokenService([]byte("test-signing-key-test-signing-key"), 1, "t", nil, nil)
		authenticator := auth.NewAuthenticator(repo.Users(), service)

		_, err := authenticator.Login(ctx, "comeback@example.com", "the original password")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)

		token, err := authenticator.Login(ctx, "comeback@example.com", "a different password")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("no tombstone row is left behind", func(t *testing.T) {
		count, err := db.NewSelect().Model((*auth.User)(nil)).WhereAllWithDeleted().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestPasswordResetLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenManager(repo.ActionTokens())
	notifier := auth.NewLogNotifier(nil)
	ctx := context.Background()

	createActiveUser(t, db, "reset@example.com", "old password value")

	service := auth.NewTokenService([]byte("test-signing-key-test-signing-key"), 1, "t", nil, nil)
	authenticator := auth.NewAuthenticator(repo.Users(), service)

	var tokenID string
	initialize := auth.NewInitializePasswordResetHandler(repo, tokens, notifier)
	err := initialize.Execute(ctx, auth.InitializePasswordResetMessage{
		Email: "reset@example.com",
		OnResponse: func(resp *auth.InitializePasswordResetResponse) {
			tokenID = resp.TokenID
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)

	finalize := auth.NewFinalizePasswordResetHandler(repo, tokens)
	err = finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:    tokenID,
		Password: "brand new password",
	})
	require.NoError(t, err)

	t.Run("old password stops working", func(t *testing.T) {
		_, err := authenticator.Login(ctx, "reset@example.com", "old password value")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("new password logs in", func(t *testing.T) {
		token, err := authenticator.Login(ctx, "reset@example.com", "brand new password")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("token is single use", func(t *testing.T) {
		err := finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    tokenID,
			Password: "yet another password",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestPasswordResetUnknownAccount(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenManager(repo.ActionTokens())
	notifier := auth.NewLogNotifier(nil)
	ctx := context.Background()

	var resp *auth.InitializePasswordResetResponse
	initialize := auth.NewInitializePasswordResetHandler(repo, tokens, notifier)
	err := initialize.Execute(ctx, auth.InitializePasswordResetMessage{
		Email: "nobody@example.com",
		OnResponse: func(r *auth.InitializePasswordResetResponse) {
			resp = r
		},
	})

	// the response does not disclose whether the account exists
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Sent)
	assert.Empty(t, resp.TokenID)
}

func TestAccountDeletionLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenManager(repo.ActionTokens())
	notifier := auth.NewLogNotifier(nil)
	ctx := context.Background()

	user := createActiveUser(t, db, "leaving@example.com", "some password here")

	var tokenID string
	initialize := auth.NewInitializeAccountDeleteHandler(repo, tokens, notifier)
	err := initialize.Execute(ctx, auth.InitializeAccountDeleteMessage{
		Email: "leaving@example.com",
		OnResponse: func(resp *auth.InitializeAccountDeleteResponse) {
			tokenID = resp.TokenID
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)

	finalize := auth.NewFinalizeAccountDeleteHandler(repo, tokens)
	err = finalize.Execute(ctx, auth.FinalizeAccountDeleteMessage{Token: tokenID})
	require.NoError(t, err)

	t.Run("identity no longer resolves", func(t *testing.T) {
		_, err := repo.Users().GetActiveByEmail(ctx, "leaving@example.com")
		assert.Error(t, err)
	})

	t.Run("sessions issued before deletion stop resolving", func(t *testing.T) {
		service := auth.NewTokenService([]byte("test-signing-key-test-signing-key"), 1, "t", nil, nil)
		authenticator := auth.NewAuthenticator(repo.Users(), service)

		raw, err := service.Generate(user)
		require.NoError(t, err)

		claims, err := authenticator.SessionFromToken(raw)
		require.NoError(t, err, "the signature alone still validates")

		_, err = authenticator.IdentityFromClaims(ctx, claims)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("deletion request for unknown account fails", func(t *testing.T) {
		err := initialize.Execute(ctx, auth.InitializeAccountDeleteMessage{
			Email: "leaving@example.com",
		})
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})
}
