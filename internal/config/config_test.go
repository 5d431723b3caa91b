package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, "supersecretkey", cfg.JWTSecret)
	assert.False(t, cfg.Redis.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TypedOverrides(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("REDIS_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_CAPACITY", "not-a-number")

	cfg := Load()

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 120, cfg.RateLimit.Capacity)
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "")

	cfg := Load()
	require.True(t, cfg.IsProduction())
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "supersecretkey"
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", cfg.MigrationURL())
}
