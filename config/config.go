// Package config handles regvm.toml project configuration, a TOML-based
// project manifest for the evaluator.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a regvm.toml configuration file.
type Config struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Cache   CacheConfig   `toml:"cache"`
	Stats   StatsConfig   `toml:"stats"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the regvm.toml file (set at load time).
	Dir string `toml:"-"`
}

// RuntimeConfig governs the evaluator loop itself.
type RuntimeConfig struct {
	// InstructionLimit bounds the number of instructions a single frame
	// may execute before it is treated as an infinite loop (runFrame's
	// "executed > limit" guard, counted separately for each frame).
	InstructionLimit int64 `toml:"instruction-limit"`
}

// CacheConfig governs the on-disk compiled-code cache (package vm/image).
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// StatsConfig governs the SQLite opcode-statistics sink (package
// vm/statsstore).
type StatsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig holds a commonlog verbosity level. cmd/regeval loads it with
// the rest of Config but does not apply it to any logger.
type LogConfig struct {
	Level string `toml:"level"`
}

const defaultInstructionLimit = 1_000_000_000

// Default returns a Config with every field at its zero-config default,
// used when no regvm.toml is present.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{InstructionLimit: defaultInstructionLimit},
		Cache:   CacheConfig{Enabled: false, Dir: ".regvm/cache"},
		Stats:   StatsConfig{Enabled: false, Path: ".regvm/stats.db"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load parses a regvm.toml file from the given directory, filling in
// defaults for anything the file omits.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "regvm.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if cfg.Runtime.InstructionLimit <= 0 {
		cfg.Runtime.InstructionLimit = defaultInstructionLimit
	}
	return cfg, nil
}

// FindAndLoad walks up from startDir looking for regvm.toml, returning
// Default() if none is found anywhere above it.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "regvm.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// CacheDirPath returns the cache directory as an absolute path.
func (c *Config) CacheDirPath() string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	if c.Dir == "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.Dir, c.Cache.Dir)
}

// StatsPath returns the stats database path as an absolute path.
func (c *Config) StatsPath() string {
	if filepath.IsAbs(c.Stats.Path) {
		return c.Stats.Path
	}
	if c.Dir == "" {
		return c.Stats.Path
	}
	return filepath.Join(c.Dir, c.Stats.Path)
}
