package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wordsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_NAME", "not-there")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
env: production
user_id: u1
db:
  type: sqlite
  path: /tmp/w.db
remote:
  base_url: https://sync.example.com
  timeout: 3s
sync:
  interval: 1m
`)
	t.Setenv("WORDSYNC_TOKEN", "secret")
	t.Setenv("WORDSYNC_SYNC_DEBOUNCE", "500ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "u1", cfg.UserID)
	assert.Equal(t, "/tmp/w.db", cfg.DB.Path)
	assert.Equal(t, "https://sync.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "secret", cfg.Remote.Token)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Debounce)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown db type", body: "db:\n  type: mysql\n"},
		{name: "postgres without dsn", body: "db:\n  type: postgres\n"},
		{name: "bad url", body: "remote:\n  base_url: not a url\n"},
		{name: "bad env", body: "env: staging\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
