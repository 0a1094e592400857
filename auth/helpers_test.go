package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/chatvault/chatvault/auth"
)

// newTestDB opens a named in-memory sqlite database scoped to the test and
// creates the auth tables. A single connection keeps the memory database
// alive for the duration of the test.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"),
	)

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []any{
		(*auth.User)(nil),
		(*auth.ActionToken)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(context.Background())
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createActiveUser inserts a verified, active user ready to authenticate.
func createActiveUser(t *testing.T, db *bun.DB, email, password string) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	repo := auth.NewUsersRepository(db)
	user, err := repo.Create(context.Background(), &auth.User{
		Email:          auth.NormalizeEmail(email),
		PasswordHash:   hash,
		EmailValidated: true,
		Active:         true,
	})
	require.NoError(t, err)
	require.NotNil(t, user)

	return user
}
