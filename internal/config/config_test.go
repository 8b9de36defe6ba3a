package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "DATABASE_DRIVER", "OVERSELL_POLICY", "SALE_TIMEOUT", "DB_MAX_OPEN_CONNS", "APP_ENV", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()

	assert.Equal(t, "5001", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 1, cfg.MaxOpenConns)
	assert.Equal(t, OversellAllow, cfg.OversellPolicy)
	assert.Equal(t, 10*time.Second, cfg.SaleTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "stock123", cfg.AdminPassword)
}

func TestFromEnvRejectsMySQLPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "3306")
	assert.Equal(t, "5001", FromEnv().HTTPPort)

	t.Setenv("HTTP_PORT", "abc")
	assert.Equal(t, "5001", FromEnv().HTTPPort)

	t.Setenv("HTTP_PORT", "8080")
	assert.Equal(t, "8080", FromEnv().HTTPPort)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "PGX")
	t.Setenv("OVERSELL_POLICY", "reject")
	t.Setenv("SALE_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("APP_ENV", "development")

	cfg := FromEnv()
	assert.Equal(t, "pgx", cfg.DatabaseDriver)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, OversellReject, cfg.OversellPolicy)
	assert.Equal(t, 3*time.Second, cfg.SaleTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogEncoding)
}

func TestFromEnvUnknownPolicyFallsBack(t *testing.T) {
	t.Setenv("OVERSELL_POLICY", "maybe")
	assert.Equal(t, OversellAllow, FromEnv().OversellPolicy)
}
