package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatvault/chatvault/config"
)

func TestAuthDefaults(t *testing.T) {
	cfg := config.Auth{}

	assert.Equal(t, "HS256", cfg.GetSigningMethod())
	assert.Equal(t, "app_session", cfg.GetContextKey())
	assert.Equal(t, 24, cfg.GetTokenExpiration())
	assert.Equal(t, "Bearer", cfg.GetAuthScheme())
	assert.Contains(t, cfg.GetAllowList(), "/login")
	assert.Contains(t, cfg.GetAllowList(), "/reset-password")
	assert.NotContains(t, cfg.GetAllowList(), "/delete-account")
	assert.Equal(t, "rejected_route", cfg.GetRejectedRouteKey())
}

func TestAuthValidate(t *testing.T) {
	t.Run("requires a signing key", func(t *testing.T) {
		cfg := config.Auth{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects short keys", func(t *testing.T) {
		cfg := config.Auth{SigningKey: "too short"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("accepts a proper key", func(t *testing.T) {
		cfg := config.Auth{SigningKey: "0123456789abcdef0123456789abcdef"}
		assert.NoError(t, cfg.Validate())
	})
}

func TestSweeperDurations(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := config.Sweeper{}
		assert.Equal(t, time.Hour, cfg.GetInterval())
		assert.Equal(t, 5*time.Minute, cfg.GetBackoff())
	})

	t.Run("expressions are parsed", func(t *testing.T) {
		cfg := config.Sweeper{IntervalExpression: "30m", BackoffExpression: "90s"}
		assert.Equal(t, 30*time.Minute, cfg.GetInterval())
		assert.Equal(t, 90*time.Second, cfg.GetBackoff())
	})

	t.Run("bad expression panics", func(t *testing.T) {
		cfg := config.Sweeper{IntervalExpression: "not-a-duration"}
		assert.Panics(t, func() {
			cfg.GetInterval()
		})
	})
}

func TestPersistenceDefaults(t *testing.T) {
	cfg := config.Persistence{}
	assert.NotEmpty(t, cfg.GetDSN())
	assert.Equal(t, 5*time.Second, cfg.GetPingTimeout())
}
