package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("REPL_SECRET", "repl-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("LEASE_TTL_SECONDS", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 300*time.Second, cfg.LeaseTTL)
}

func TestLoadLeaseTTLOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("LEASE_TTL_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.LeaseTTL)
}

func TestLoadRejectsBadLeaseTTL(t *testing.T) {
	setRequired(t)
	for _, bad := range []string{"abc", "0", "-5"} {
		t.Setenv("LEASE_TTL_SECONDS", bad)
		_, err := Load()
		assert.Error(t, err, bad)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REPL_SECRET", "x")
	t.Setenv("LEASE_TTL_SECONDS", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "x")
	t.Setenv("REPL_SECRET", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestConnString(t *testing.T) {
	cfg := Config{DBUser: "u", DBPass: "p", DBHost: "localhost", DBPort: "5432", DBName: "notes"}
	assert.Equal(t, "postgres://u:p@localhost:5432/notes?sslmode=require", cfg.ConnString())
}
