package git

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestRepoRoot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := testRepo(t)

	got, err := RepoRoot(ctx, root)
	if err != nil {
		t.Fatalf("RepoRoot: %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("RepoRoot = %q, want %q", got, want)
	}
}

func TestRepoRoot_FromWorktree(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := testRepo(t)
	wt := filepath.Join(root, "side")
	gitT(t, root, "worktree", "add", wt, "-b", "side")

	got, err := RepoRoot(ctx, wt)
	if err != nil {
		t.Fatalf("RepoRoot from worktree: %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("RepoRoot from worktree = %q, want main root %q", got, want)
	}
}

func TestRepoRoot_NotARepo(t *testing.T) {
	t.Parallel()
	_, err := RepoRoot(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNotARepository) {
		t.Errorf("RepoRoot outside repo = %v, want ErrNotARepository", err)
	}
}

func TestDefaultBranch_Fallback(t *testing.T) {
	t.Parallel()
	root := testRepo(t)
	// No origin remote, so origin/HEAD cannot resolve.
	if got := DefaultBranch(context.Background(), root); got != "main" {
		t.Errorf("DefaultBranch = %q, want main fallback", got)
	}
}

func TestBranchExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := testRepo(t)

	if !BranchExists(ctx, root, "main") {
		t.Error("main should exist")
	}
	if BranchExists(ctx, root, "nope") {
		t.Error("nope should not exist")
	}
}

func TestIsValidBranchName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := testRepo(t)

	valid := []string{"feature-x", "fix/issue-12", "a.b"}
	for _, name := range valid {
		if !IsValidBranchName(ctx, root, name) {
			t.Errorf("IsValidBranchName(%q) = false, want true", name)
		}
	}
	invalid := []string{"bad..name", "-flag", "space name", ""}
	for _, name := range invalid {
		if IsValidBranchName(ctx, root, name) {
			t.Errorf("IsValidBranchName(%q) = true, want false", name)
		}
	}
}

func TestLocalBranches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := testRepo(t)
	gitT(t, root, "branch", "other")

	got, err := LocalBranches(ctx, root)
	if err != nil {
		t.Fatalf("LocalBranches: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LocalBranches = %v, want 2 branches", got)
	}
}
