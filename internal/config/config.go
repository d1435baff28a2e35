// Package config loads flowcanvas settings from an optional TOML file.
// Command-line flags override anything read from the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all runtime settings.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Canvas CanvasConfig `toml:"canvas"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Listen  string `toml:"listen"`
	DataDir string `toml:"data_dir"` // JSON seed files for import and watch mode
	Watch   bool   `toml:"watch"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	Path string `toml:"path"` // SQLite database file; empty means in-memory
}

// CacheConfig configures the render cache.
type CacheConfig struct {
	Backend     string   `toml:"backend"` // none, file, or redis
	Dir         string   `toml:"dir"`
	RedisAddr   string   `toml:"redis_addr"`
	RedisPrefix string   `toml:"redis_prefix"`
	TTL         duration `toml:"ttl"`
}

// CanvasConfig tunes the interactive engine.
type CanvasConfig struct {
	TickIntervalMS int `toml:"tick_interval_ms"`
}

// duration wraps time.Duration so TOML can carry values like "10m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// TTLOrDefault returns the configured cache TTL, or fallback when unset.
func (c CacheConfig) TTLOrDefault(fallback time.Duration) time.Duration {
	if c.TTL.Duration > 0 {
		return c.TTL.Duration
	}
	return fallback
}

// Default returns the built-in settings used when no file or flags are given.
func Default() Config {
	return Config{
		Server: ServerConfig{Listen: "127.0.0.1:8642"},
		Cache:  CacheConfig{Backend: "none", RedisPrefix: "flowcanvas:"},
		Canvas: CanvasConfig{TickIntervalMS: 1500},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// fine when the path was not explicitly requested.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot act on.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "", "none", "file", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q (want none, file, or redis)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return errors.New("cache backend redis requires redis_addr")
	}
	if c.Canvas.TickIntervalMS < 0 {
		return fmt.Errorf("tick_interval_ms must not be negative, got %d", c.Canvas.TickIntervalMS)
	}
	return nil
}

// TickInterval returns the configured scenario tick period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.Canvas.TickIntervalMS) * time.Millisecond
}
