// Package config loads the site configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	// ContentDir is the root of the literate document tree.
	ContentDir string `yaml:"content_dir"`

	// CacheDir backs the block cache when the filesystem store is used.
	CacheDir string `yaml:"cache_dir"`

	// OutputDir receives processed documents.
	OutputDir string `yaml:"output_dir"`

	// CacheBackend selects the store: "fs" (default), "sqlite" or "memory".
	CacheBackend string `yaml:"cache_backend,omitempty"`

	// Development toggles dev-mode behavior (unminified transforms,
	// isDevelopment() inside executed blocks).
	Development bool `yaml:"development,omitempty"`

	// Workers bounds concurrent document processing; 0 means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ContentDir:   "content",
		CacheDir:     ".orgpress/cache",
		OutputDir:    "public",
		CacheBackend: "fs",
	}
}

// Load reads a YAML configuration file, fills defaults, and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment variables override file values; useful in CI.
func (c *Config) applyEnv() {
	if v := os.Getenv("ORGPRESS_CONTENT_DIR"); v != "" {
		c.ContentDir = v
	}
	if v := os.Getenv("ORGPRESS_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("ORGPRESS_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("ORGPRESS_CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("ORGPRESS_DEV"); v != "" {
		c.Development = v == "1" || v == "true"
	}
	if v := os.Getenv("ORGPRESS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "", "fs", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// EffectiveWorkers resolves the worker bound.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
