package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Play.ValidityThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Play.IdleTimeout)
	assert.Equal(t, "memory", cfg.Play.SessionBackend)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "tunelease", cfg.Auth.Issuer)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TL_SERVER_HTTP_PORT", "9090")
	t.Setenv("TL_POSTGRES_PASSWORD", "s3cret")
	t.Setenv("TL_REDIS_PASSWORD", "r3dis")
	t.Setenv("TL_REDIS_MIN_IDLE_CONNS", "4")
	t.Setenv("TL_AUTH_JWT_SECRET", "env-only-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Contains(t, cfg.Postgres.DSN(), "s3cret")
	assert.Equal(t, "r3dis", cfg.Redis.Password)
	assert.Equal(t, 4, cfg.Redis.MinIdleConns)
	assert.Equal(t, "env-only-secret", cfg.Auth.JWTSecret)
}

func TestLoad_FileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  http_port: 9001
play:
  validity_threshold: 30s
  idle_timeout: 2m
  session_backend: memory
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Play.ValidityThreshold)
	assert.Equal(t, 2*time.Minute, cfg.Play.IdleTimeout)
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Play.SessionBackend = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Play.IdleTimeout = cfg.Play.ValidityThreshold
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Play.SessionBackend = "redis"
	cfg.Redis.Enabled = false
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.HTTPPort = 0
	assert.Error(t, cfg.Validate())
}
