// Package config loads gw configuration from TOML. A global file under
// the user config dir supplies defaults; a per-repository .gw/config.toml
// overrides individual fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// RefreshConfig tunes the background refresh cycle.
type RefreshConfig struct {
	// Forge disables PR/check lookups entirely when false.
	Forge *bool `toml:"forge"`
}

// Config holds the gw configuration.
type Config struct {
	// DefaultBranch overrides origin/HEAD detection when set.
	DefaultBranch string `toml:"default_branch"`

	// PullBeforeCreate pulls the base worktree before branching a new
	// worktree off it.
	PullBeforeCreate *bool `toml:"pull_before_create"`

	// CacheDir overrides the per-user cache directory.
	CacheDir string `toml:"cache_dir"`

	Refresh RefreshConfig `toml:"refresh"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{}
}

// ForgeEnabled reports whether PR/check lookups are allowed.
func (c *Config) ForgeEnabled() bool {
	return c.Refresh.Forge == nil || *c.Refresh.Forge
}

// ShouldPullBeforeCreate reports whether a create from the default
// branch pulls first. Defaults to true.
func (c *Config) ShouldPullBeforeCreate() bool {
	return c.PullBeforeCreate == nil || *c.PullBeforeCreate
}

// GlobalPath returns the global config file location.
func GlobalPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gw", "config.toml"), nil
}

// RepoPath returns the per-repository config file location.
func RepoPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".gw", "config.toml")
}

// Load reads the global config and layers the repository config on top.
// Missing files are fine; a malformed file is an error.
func Load(repoRoot string) (Config, error) {
	cfg := Default()

	globalPath, err := GlobalPath()
	if err == nil {
		if err := loadFile(globalPath, &cfg); err != nil {
			return cfg, err
		}
	}
	if repoRoot != "" {
		if err := loadFile(RepoPath(repoRoot), &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	var layer Config
	meta, err := toml.DecodeFile(path, &layer)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("parsing %s: unknown key %q", path, undecoded[0].String())
	}
	merge(cfg, layer)
	return nil
}

// merge overlays set fields of layer onto cfg.
func merge(cfg *Config, layer Config) {
	if layer.DefaultBranch != "" {
		cfg.DefaultBranch = layer.DefaultBranch
	}
	if layer.PullBeforeCreate != nil {
		cfg.PullBeforeCreate = layer.PullBeforeCreate
	}
	if layer.CacheDir != "" {
		cfg.CacheDir = layer.CacheDir
	}
	if layer.Refresh.Forge != nil {
		cfg.Refresh.Forge = layer.Refresh.Forge
	}
}
