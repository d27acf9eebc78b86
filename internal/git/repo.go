package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// CheckGit verifies that the git binary is available on PATH.
func CheckGit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return errors.New("git not found in PATH")
	}
	return nil
}

// RepoRoot resolves the canonical repository root for the given directory.
// Inside a linked worktree this resolves to the main repository, not the
// worktree, so every worktree of one repo shares a single root (and a
// single cache).
func RepoRoot(ctx context.Context, dir string) (string, error) {
	commonDir, err := outputGit(ctx, dir, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", ErrNotARepository
	}

	if !filepath.IsAbs(commonDir) {
		base := dir
		if base == "" {
			base, err = os.Getwd()
			if err != nil {
				return "", err
			}
		}
		commonDir = filepath.Join(base, commonDir)
	}
	if resolved, err := filepath.EvalSymlinks(commonDir); err == nil {
		commonDir = resolved
	}

	// A non-bare repo's common dir is <root>/.git.
	if filepath.Base(commonDir) == ".git" {
		return filepath.Dir(commonDir), nil
	}
	return commonDir, nil
}

// IsBare reports whether the repository at root is bare.
func IsBare(ctx context.Context, root string) bool {
	out, _ := tryGit(ctx, root, "rev-parse", "--is-bare-repository")
	return out == "true"
}

// SetBare flips core.bare on the repository at root.
func SetBare(ctx context.Context, root string, bare bool) error {
	return runGit(ctx, root, "config", "core.bare", strconv.FormatBool(bare))
}

// DefaultBranch returns the repository's default branch, derived from
// origin/HEAD. Falls back to "main" when origin/HEAD is unset.
func DefaultBranch(ctx context.Context, root string) string {
	ref, ok := tryGit(ctx, root, "symbolic-ref", "--quiet", "--short", "refs/remotes/origin/HEAD")
	if ok {
		if _, branch, found := strings.Cut(ref, "/"); found {
			return branch
		}
	}
	return "main"
}

// HasOrigin reports whether the repository has an origin remote.
func HasOrigin(ctx context.Context, root string) bool {
	_, ok := tryGit(ctx, root, "remote", "get-url", "origin")
	return ok
}

// BranchExists reports whether a local branch of that name exists.
func BranchExists(ctx context.Context, root, branch string) bool {
	_, ok := tryGit(ctx, root, "show-ref", "--verify", "refs/heads/"+branch)
	return ok
}

// RemoteBranchExists reports whether origin has a branch of that name.
// This performs a network round-trip.
func RemoteBranchExists(ctx context.Context, root, branch string) bool {
	out, ok := tryGit(ctx, root, "ls-remote", "--heads", "origin", branch)
	return ok && strings.TrimSpace(out) != ""
}

// IsValidBranchName reports whether name is an acceptable branch name.
func IsValidBranchName(ctx context.Context, root, name string) bool {
	_, ok := tryGit(ctx, root, "check-ref-format", "--branch", name)
	return ok
}

// LocalBranches lists all local branch names.
func LocalBranches(ctx context.Context, root string) ([]string, error) {
	out, err := outputGit(ctx, root, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// FetchPrune fetches from origin with --prune. Best effort: offline
// operation is a supported mode, so fetch failures are swallowed.
func FetchPrune(ctx context.Context, root string) {
	_, _ = tryGit(ctx, root, "fetch", "--prune")
}

// FetchBranch fetches a single branch ref from origin into the local
// branch of the same name.
func FetchBranch(ctx context.Context, root, branch string) error {
	return runGit(ctx, root, "fetch", "origin", branch+":"+branch)
}

// Pull runs git pull in the given worktree.
func Pull(ctx context.Context, worktreePath string) error {
	return runGit(ctx, worktreePath, "pull")
}

// Push pushes the worktree's branch to its upstream.
func Push(ctx context.Context, worktreePath string) error {
	return runGit(ctx, worktreePath, "push")
}

// PushSetUpstream pushes the branch and sets origin/<branch> as upstream.
func PushSetUpstream(ctx context.Context, worktreePath, branch string) error {
	return runGit(ctx, worktreePath, "push", "-u", "origin", branch)
}
