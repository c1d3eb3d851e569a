package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "blog.db", cfg.Database.Path)
	assert.Equal(t, DefaultAccessTokenExpireMinutes, cfg.Auth.AccessTokenExpireMinutes)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BLOG_ADDR", ":9999")
	t.Setenv("BLOG_DB_PATH", "/tmp/other.db")
	t.Setenv("SECRET_KEY", "hunter2")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, "hunter2", cfg.Auth.SecretKey)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestYAMLFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "server:\n  addr: \":7777\"\nauth:\n  access_token_expire_minutes: 60\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "15")

	cfg, err := Load(path)
	require.NoError(t, err)

	// file value survives where no env var is set, env wins otherwise
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, 15, cfg.Auth.AccessTokenExpireMinutes)
}

func TestMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "blog.db", cfg.Database.Path)
}

func TestInvalidValues(t *testing.T) {
	t.Run("non-numeric expiry", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "soon")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidTokenExpiry)
	})

	t.Run("negative expiry", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "-1")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidTokenExpiry)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidLogLevel)
	})

	t.Run("bad log format", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "xml")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidLogFormat)
	})
}
