package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raphi011/gw/internal/hooks"
	"github.com/raphi011/gw/internal/output"
)

func gitT(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
}

func testRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitT(t, dir, "init", "-b", "main")
	gitT(t, dir, "config", "user.email", "test@example.com")
	gitT(t, dir, "config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitT(t, dir, "add", ".")
	gitT(t, dir, "commit", "-m", "initial")
	return dir
}

func TestShellInit_EmitsWrappers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := output.WithPrinter(context.Background(), &buf)

	c := newShellInitCmd()
	c.SetContext(ctx)
	if err := c.RunE(c, nil); err != nil {
		t.Fatalf("shell-init: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"# bash/zsh", "# fish", `command gw`, "cd "} {
		if !strings.Contains(out, want) {
			t.Errorf("shell-init output missing %q:\n%s", want, out)
		}
	}
}

func TestHooksAdd_WritesSettings(t *testing.T) {
	repo := testRepo(t)
	t.Chdir(repo)

	c := newHooksAddCmd()
	c.SetContext(context.Background())
	if err := c.RunE(c, []string{"npm install"}); err != nil {
		t.Fatalf("hooks add: %v", err)
	}

	cmds, _, err := hooks.Commands(repo, hooks.PostWorktreeCreation)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 || cmds[0] != "npm install" {
		t.Errorf("commands = %v, want [npm install]", cmds)
	}
}

func TestHooksRerun_RunsInCurrentWorktree(t *testing.T) {
	repo := testRepo(t)
	t.Chdir(repo)

	addCmd := newHooksAddCmd()
	addCmd.SetContext(context.Background())
	if err := addCmd.RunE(addCmd, []string{"touch ran-here"}); err != nil {
		t.Fatalf("hooks add: %v", err)
	}

	c := newHooksRerunCmd()
	c.SetContext(context.Background())
	if err := c.RunE(c, nil); err != nil {
		t.Fatalf("hooks rerun: %v", err)
	}
	if _, err := os.Stat(filepath.Join(repo, "ran-here")); err != nil {
		t.Errorf("hook did not run in the worktree: %v", err)
	}
}

func TestDoctor_CleanRepository(t *testing.T) {
	repo := testRepo(t)
	t.Chdir(repo)

	c := newDoctorCmd()
	c.SetContext(context.Background())
	if err := c.RunE(c, nil); err != nil {
		t.Fatalf("doctor on clean repo: %v", err)
	}
}

func TestDoctorFix_CreatesMissingWorktree(t *testing.T) {
	repo := testRepo(t)
	gitT(t, repo, "branch", "orphan")
	t.Chdir(repo)

	c := newDoctorCmd()
	c.SetContext(context.Background())
	if err := c.Flags().Set("fix", "true"); err != nil {
		t.Fatal(err)
	}
	if err := c.RunE(c, nil); err != nil {
		t.Fatalf("doctor --fix: %v", err)
	}

	if _, err := os.Stat(filepath.Join(repo, "orphan", "README.md")); err != nil {
		t.Errorf("worktree for orphan not created: %v", err)
	}
}

func TestVersionString(t *testing.T) {
	t.Parallel()

	if got := versionString(); !strings.HasPrefix(got, "gw ") {
		t.Errorf("versionString() = %q", got)
	}
}
