package doctor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raphi011/gw/internal/git"
)

func TestClassify_Healthy(t *testing.T) {
	t.Parallel()
	report := Classify("/r", []git.Worktree{
		{Path: "/r", Branch: "main"},
		{Path: "/r/feature-x", Branch: "feature-x"},
	}, []string{"main", "feature-x"})

	if !report.Clean() {
		t.Errorf("healthy state produced report %+v", report)
	}
}

func TestClassify_BranchWithoutWorktree(t *testing.T) {
	t.Parallel()
	report := Classify("/r", []git.Worktree{
		{Path: "/r", Branch: "main"},
	}, []string{"main", "fix/login", "feature-x"})

	if len(report.Actions) != 2 {
		t.Fatalf("got %d actions, want 2: %+v", len(report.Actions), report.Actions)
	}
	// Sorted by branch name.
	first := report.Actions[0]
	if first.Kind != CreateWorktree || first.Branch != "feature-x" {
		t.Errorf("first action = %+v, want create feature-x", first)
	}
	second := report.Actions[1]
	if second.Kind != CreateWorktree || second.Branch != "fix/login" {
		t.Errorf("second action = %+v, want create fix/login", second)
	}
	// Slash in branch name maps to a nested directory.
	if want := filepath.Join("/r", "fix", "login"); second.Path != want {
		t.Errorf("nested path = %q, want %q", second.Path, want)
	}
}

func TestClassify_WorktreeWithoutBranch(t *testing.T) {
	t.Parallel()
	report := Classify("/r", []git.Worktree{
		{Path: "/r", Branch: "main"},
		{Path: "/r/stale", Branch: "deleted-branch"},
	}, []string{"main"})

	if len(report.Actions) != 1 {
		t.Fatalf("got %d actions, want 1: %+v", len(report.Actions), report.Actions)
	}
	action := report.Actions[0]
	if action.Kind != RemoveWorktree || action.Path != "/r/stale" {
		t.Errorf("action = %+v, want remove /r/stale", action)
	}
}

func TestClassify_DetachedIsUnrecoverable(t *testing.T) {
	t.Parallel()
	report := Classify("/r", []git.Worktree{
		{Path: "/r", Branch: "main"},
		{Path: "/r/loose", Detached: true, Head: "abc123"},
	}, []string{"main"})

	if len(report.Actions) != 0 {
		t.Errorf("detached worktree proposed actions: %+v", report.Actions)
	}
	if len(report.Unrecoverable) != 1 {
		t.Fatalf("got %d unrecoverable, want 1", len(report.Unrecoverable))
	}
	u := report.Unrecoverable[0]
	if u.Path != "/r/loose" || u.Guidance == "" {
		t.Errorf("unrecoverable = %+v, want path and guidance", u)
	}
}

func TestClassify_SharedBranchIsUnrecoverable(t *testing.T) {
	t.Parallel()
	report := Classify("/r", []git.Worktree{
		{Path: "/r/a", Branch: "shared"},
		{Path: "/r/b", Branch: "shared"},
	}, []string{"shared"})

	if len(report.Unrecoverable) != 1 {
		t.Fatalf("got %d unrecoverable, want 1: %+v", len(report.Unrecoverable), report.Unrecoverable)
	}
	if !strings.Contains(report.Unrecoverable[0].Reason, "multiple worktrees") {
		t.Errorf("reason = %q", report.Unrecoverable[0].Reason)
	}
}

func TestClassify_CreatesBeforeRemovals(t *testing.T) {
	t.Parallel()
	report := Classify("/r", []git.Worktree{
		{Path: "/r", Branch: "main"},
		{Path: "/r/stale", Branch: "gone"},
	}, []string{"main", "new-branch"})

	if len(report.Actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(report.Actions))
	}
	if report.Actions[0].Kind != CreateWorktree || report.Actions[1].Kind != RemoveWorktree {
		t.Errorf("action order = %v, %v; want create then remove",
			report.Actions[0].Kind, report.Actions[1].Kind)
	}
}

// gitT runs git in dir, failing the test on error.
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

func TestScanAndExecute_Integration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := testRepo(t)
	// A branch with no worktree.
	gitT(t, root, "branch", "orphan-branch")

	report, err := Scan(ctx, root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(report.Actions) != 1 || report.Actions[0].Kind != CreateWorktree {
		t.Fatalf("report = %+v, want one create action", report)
	}

	outcomes := Execute(ctx, root, report.Actions)
	for _, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("action %v failed: %v", o.Action, o.Err)
		}
	}

	// Re-scan confirms resolution.
	report, err = Scan(ctx, root)
	if err != nil {
		t.Fatalf("re-scan: %v", err)
	}
	if !report.Clean() {
		t.Errorf("state not clean after execute: %+v", report)
	}
}

func TestExecute_FailureDoesNotBlockRemaining(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := testRepo(t)
	gitT(t, root, "branch", "fixable")

	actions := []Action{
		// References a branch that does not exist, so it must fail.
		{Kind: CreateWorktree, Branch: "no-such-branch", Path: filepath.Join(root, "no-such-branch")},
		{Kind: CreateWorktree, Branch: "fixable", Path: filepath.Join(root, "fixable")},
	}
	outcomes := Execute(ctx, root, actions)
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[0].Err == nil {
		t.Error("first action should have failed")
	}
	if outcomes[1].Err != nil {
		t.Errorf("second action failed despite first: %v", outcomes[1].Err)
	}
}
