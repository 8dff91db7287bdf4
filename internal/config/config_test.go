package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "orgpress.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "content", cfg.ContentDir)
	assert.Equal(t, ".orgpress/cache", cfg.CacheDir)
	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, "fs", cfg.CacheBackend)
	assert.False(t, cfg.Development)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orgpress.yaml")
	require.NoError(t, os.WriteFile(path, []byte("content_dir: docs\ncache_backend: sqlite\nworkers: 3\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.ContentDir)
	assert.Equal(t, "sqlite", cfg.CacheBackend)
	assert.Equal(t, 3, cfg.Workers)
	// Unset keys keep their defaults.
	assert.Equal(t, "public", cfg.OutputDir)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orgpress.yaml")
	require.NoError(t, os.WriteFile(path, []byte("content_dir: docs\n"), 0o600))

	t.Setenv("ORGPRESS_CONTENT_DIR", "elsewhere")
	t.Setenv("ORGPRESS_DEV", "true")
	t.Setenv("ORGPRESS_WORKERS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", cfg.ContentDir)
	assert.True(t, cfg.Development)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orgpress.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_backend: redis\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestEffectiveWorkers(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.EffectiveWorkers(), 0)

	cfg.Workers = 5
	assert.Equal(t, 5, cfg.EffectiveWorkers())
}
