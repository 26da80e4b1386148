package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 3030, cfg.Server.HTTPPort)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.URI)
	assert.Equal(t, "documents", cfg.Storage.Channel)
	assert.Equal(t, "assets", cfg.Watcher.Dir)
	assert.Equal(t, 1024, cfg.Watcher.QueueSize)
	assert.Equal(t, 10, cfg.Realtime.Reconnect.MaxAttempts)
	assert.False(t, cfg.Realtime.Mirror.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
server:
  http_port: 8080
watcher:
  dir: /srv/journal
  queue_size: 64
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "/srv/journal", cfg.Watcher.Dir)
	assert.Equal(t, 64, cfg.Watcher.QueueSize)
	// Untouched sections keep their defaults.
	assert.Equal(t, "documents", cfg.Storage.Collection)
}

func TestLoad_LocalFileOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "server:\n  http_port: 8080\n")
	writeConfig(t, dir, "config.local.yml", "server:\n  http_port: 9090\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "watcher:\n  dir: from-file\n")

	t.Setenv("JOURNAL_WATCH_DIR", "from-env")
	t.Setenv("JOURNAL_HTTP_PORT", "4040")
	t.Setenv("JOURNAL_STORAGE_URI", "mongodb://db:27017")
	t.Setenv("JOURNAL_STORAGE_COLLECTION", "entries")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Watcher.Dir)
	assert.Equal(t, 4040, cfg.Server.HTTPPort)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.URI)
	assert.Equal(t, "entries", cfg.Storage.Collection)
}

func TestLoad_BadEnvIntIgnored(t *testing.T) {
	t.Setenv("JOURNAL_QUEUE_SIZE", "lots")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Watcher.QueueSize)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty watch dir":    func(c *Config) { c.Watcher.Dir = "" },
		"zero queue":         func(c *Config) { c.Watcher.QueueSize = 0 },
		"bad port":           func(c *Config) { c.Server.HTTPPort = -1 },
		"empty storage uri":  func(c *Config) { c.Storage.URI = "" },
		"empty channel":      func(c *Config) { c.Storage.Channel = "" },
		"mirror without url": func(c *Config) { c.Realtime.Mirror.Enabled = true; c.Realtime.Mirror.URL = "" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	assert.NoError(t, Default().Validate())
}
