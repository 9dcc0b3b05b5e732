package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpforge/lpforge/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "./lpforge.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionCookieTTL)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpforge.yaml")
	data := `
server:
  port: 9090
database:
  path: /var/lib/lpforge.db
auth:
  jwt_secret: filesecret
  token_ttl: 2h
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "/var/lib/lpforge.db", cfg.DBPath)
	assert.Equal(t, "filesecret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	t.Setenv("LPFORGE_PORT", "7070")
	t.Setenv("LPFORGE_JWT_SECRET", "envsecret")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTPPort)
	assert.Equal(t, "envsecret", cfg.JWTSecret)
}

func TestLoad_RejectsBadBcryptCost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  bcrypt_cost: 99\n"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}
