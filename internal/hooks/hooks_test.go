package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raphi011/gw/internal/log"
)

func TestCommands_NoSettingsFile(t *testing.T) {
	t.Parallel()
	commands, _, err := Commands(t.TempDir(), PostWorktreeCreation)
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	if len(commands) != 0 {
		t.Errorf("Commands = %v, want empty", commands)
	}
}

func TestAdd_RoundTrip(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	if err := Add(root, PostWorktreeCreation, "npm install"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := Add(root, PostWorktreeCreation, "  direnv allow  "); err != nil {
		t.Fatalf("Add second: %v", err)
	}

	commands, _, err := Commands(root, PostWorktreeCreation)
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	want := []string{"npm install", "direnv allow"}
	if len(commands) != len(want) {
		t.Fatalf("Commands = %v, want %v", commands, want)
	}
	for i := range want {
		if commands[i] != want[i] {
			t.Errorf("Commands[%d] = %q, want %q", i, commands[i], want[i])
		}
	}
}

func TestAdd_EmptyCommand(t *testing.T) {
	t.Parallel()
	if err := Add(t.TempDir(), PostWorktreeCreation, "   "); err == nil {
		t.Error("Add(empty) = nil, want error")
	}
}

func TestAdd_PreservesUnknownKeys(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, ".gw", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	seed := `{"editor": "vim", "hooks": {"OtherStep": [{"type": "command", "command": "true"}]}}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Add(root, PostWorktreeCreation, "make setup"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var settings map[string]json.RawMessage
	if err := json.Unmarshal(data, &settings); err != nil {
		t.Fatalf("settings no longer valid JSON: %v", err)
	}
	if string(settings["editor"]) != `"vim"` {
		t.Errorf("unknown key editor = %s, want preserved", settings["editor"])
	}
	other, _, err := Commands(root, "OtherStep")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 || other[0] != "true" {
		t.Errorf("OtherStep commands = %v, want [true]", other)
	}
}

func TestCommands_ReportsUnknownTypes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, ".gw", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	seed := `{"hooks": {"PostWorktreeCreation": [
		{"type": "script", "command": "skip-me"},
		{"type": "command", "command": "keep-me"},
		{"type": "command", "command": "  "}
	]}}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	commands, unknown, err := Commands(root, PostWorktreeCreation)
	if err != nil {
		t.Fatal(err)
	}
	if len(commands) != 1 || commands[0] != "keep-me" {
		t.Errorf("Commands = %v, want [keep-me]", commands)
	}
	if len(unknown) != 1 || unknown[0] != "script" {
		t.Errorf("unknown types = %v, want [script]", unknown)
	}
}

func TestRun_Success(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	workDir := filepath.Join(root, "wt")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := Add(root, PostWorktreeCreation, "touch created.txt"); err != nil {
		t.Fatal(err)
	}

	if err := Run(context.Background(), root, PostWorktreeCreation, workDir); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "created.txt")); err != nil {
		t.Errorf("hook did not run in worktree dir: %v", err)
	}
}

func TestRun_WarnsOnUnknownTypes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, ".gw", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	seed := `{"hooks": {"PostWorktreeCreation": [
		{"type": "script", "command": "skip-me"},
		{"type": "command", "command": "touch ran.txt"}
	]}}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.New(&buf, false, false))
	if err := Run(ctx, root, PostWorktreeCreation, root); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "ran.txt")); err != nil {
		t.Errorf("command hook did not run: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, `unknown type "script"`) {
		t.Errorf("no warning for unknown hook type, log = %q", got)
	}
}

func TestRun_FailureStopsAndReports(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := Add(root, PostWorktreeCreation, "echo broken >&2; exit 3"); err != nil {
		t.Fatal(err)
	}
	if err := Add(root, PostWorktreeCreation, "touch should-not-exist.txt"); err != nil {
		t.Fatal(err)
	}

	err := Run(context.Background(), root, PostWorktreeCreation, root)
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Run = %v, want *StepError", err)
	}
	if stepErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", stepErr.ExitCode)
	}
	if stepErr.Output != "broken" {
		t.Errorf("Output = %q, want broken", stepErr.Output)
	}
	if _, err := os.Stat(filepath.Join(root, "should-not-exist.txt")); !os.IsNotExist(err) {
		t.Error("later hook ran after failure")
	}
}
