package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRepoConfig(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, ".gw")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_NoFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.ForgeEnabled() {
		t.Error("forge lookups should default to enabled")
	}
	if !cfg.ShouldPullBeforeCreate() {
		t.Error("pull-before-create should default to true")
	}
	if cfg.DefaultBranch != "" {
		t.Errorf("DefaultBranch = %q, want empty", cfg.DefaultBranch)
	}
}

func TestLoad_RepoOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	writeRepoConfig(t, root, `
default_branch = "trunk"
pull_before_create = false

[refresh]
forge = false
`)

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultBranch != "trunk" {
		t.Errorf("DefaultBranch = %q, want trunk", cfg.DefaultBranch)
	}
	if cfg.ShouldPullBeforeCreate() {
		t.Error("pull_before_create = false not honored")
	}
	if cfg.ForgeEnabled() {
		t.Error("refresh.forge = false not honored")
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	writeRepoConfig(t, root, `default_brnach = "typo"`)

	_, err := Load(root)
	if err == nil {
		t.Fatal("Load with unknown key = nil, want error")
	}
	if !strings.Contains(err.Error(), "default_brnach") {
		t.Errorf("error %q does not name the unknown key", err)
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	writeRepoConfig(t, root, `default_branch = [`)

	if _, err := Load(root); err == nil {
		t.Error("Load with malformed TOML = nil, want error")
	}
}

func TestMerge_KeepsUnsetFields(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.DefaultBranch = "main"
	f := false
	merge(&cfg, Config{Refresh: RefreshConfig{Forge: &f}})

	if cfg.DefaultBranch != "main" {
		t.Errorf("DefaultBranch = %q, want main untouched", cfg.DefaultBranch)
	}
	if cfg.ForgeEnabled() {
		t.Error("merged forge flag lost")
	}
}
