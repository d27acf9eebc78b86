package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Worktree is the git-reported fact of a single worktree, straight out of
// `git worktree list --porcelain`. It is an intermediate value and is
// never persisted.
type Worktree struct {
	Path     string
	Branch   string // empty when detached
	Head     string
	Detached bool
	Locked   bool
	Prunable bool
}

// ListWorktrees enumerates the repository's worktrees. Bare entries (the
// repository root of a bare checkout) are excluded.
func ListWorktrees(ctx context.Context, root string) ([]Worktree, error) {
	out, err := outputGit(ctx, root, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("listing worktrees: %w", err)
	}
	return parseWorktreeList(out), nil
}

// parseWorktreeList parses `git worktree list --porcelain` output.
// Entries are separated by blank lines; each starts with a "worktree"
// attribute line.
func parseWorktreeList(out string) []Worktree {
	var worktrees []Worktree
	var cur Worktree
	var bare, open bool

	flush := func() {
		if open && !bare && (cur.Branch != "" || cur.Head != "") {
			worktrees = append(worktrees, cur)
		}
		cur = Worktree{}
		bare = false
		open = false
	}

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			open = true
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			cur.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case strings.HasPrefix(line, "HEAD "):
			cur.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "detached"):
			cur.Detached = true
		case strings.HasPrefix(line, "locked"):
			cur.Locked = true
		case strings.HasPrefix(line, "prunable"):
			cur.Prunable = true
		case strings.HasPrefix(line, "bare"):
			bare = true
		}
	}
	flush()
	return worktrees
}

// PruneWorktrees drops stale administrative worktree entries. Best effort.
func PruneWorktrees(ctx context.Context, root string) {
	_, _ = tryGit(ctx, root, "worktree", "prune")
}

// WorktreePath returns the directory a branch's worktree lives at.
// Worktrees are laid out under the repository root, named by branch, so
// the path and the branch name stay interchangeable.
func WorktreePath(root, branch string) string {
	return filepath.Join(root, branch)
}

// worktreeAdd creates a worktree at path. With base set it creates a new
// branch off base; without, it checks out the already-existing branch.
func worktreeAdd(ctx context.Context, root, path, branch, base string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if base != "" {
		return runGit(ctx, root, "worktree", "add", "-b", branch, path, base)
	}
	return runGit(ctx, root, "worktree", "add", path, branch)
}

// AddWorktreeForBranch checks an existing local branch out into its
// derived worktree path. Used when repairing a branch that lost its
// worktree.
func AddWorktreeForBranch(ctx context.Context, root, branch string) (string, error) {
	path := WorktreePath(root, branch)
	if err := worktreeAdd(ctx, root, path, branch, ""); err != nil {
		return "", err
	}
	return path, nil
}

// RemoveWorktreeOnly removes a worktree directory without touching any
// branch. Used when repairing a worktree that has no valid branch.
func RemoveWorktreeOnly(ctx context.Context, root, path string) error {
	if err := runGit(ctx, root, "worktree", "remove", "--force", path); err != nil {
		if strings.Contains(err.Error(), "locked") {
			return fmt.Errorf("%w: %s", ErrWorktreeLocked, path)
		}
		return err
	}
	return nil
}

// CreateOptions controls Create.
type CreateOptions struct {
	// BaseBranch is the branch to fork from when the branch does not
	// already exist on origin. Empty means the default branch.
	BaseBranch string

	// PullBasePath, when set, is a worktree path to `git pull` in before
	// creating, so the new branch starts from a fresh base tip.
	PullBasePath string
}

// Create makes a branch+worktree pair for a new branch name. If origin
// already has a branch of that name the remote branch is fetched and
// checked out with upstream tracking instead of creating fresh history;
// otherwise the branch forks off the base branch.
//
// Returns the new worktree path. Fails with ErrBranchExists when the
// branch or its target path already exists, ErrInvalidBranchName when the
// name is not a valid ref.
func Create(ctx context.Context, root, branch string, opts CreateOptions) (string, error) {
	if !IsValidBranchName(ctx, root, branch) {
		return "", ErrInvalidBranchName
	}
	if BranchExists(ctx, root, branch) {
		return "", ErrBranchExists
	}
	path := WorktreePath(root, branch)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: path %s already exists", ErrBranchExists, path)
	}

	if opts.PullBasePath != "" {
		if err := Pull(ctx, opts.PullBasePath); err != nil {
			return "", fmt.Errorf("pulling base: %w", err)
		}
	}

	if HasOrigin(ctx, root) && RemoteBranchExists(ctx, root, branch) {
		if err := FetchBranch(ctx, root, branch); err != nil {
			return "", fmt.Errorf("fetching %s: %w", branch, err)
		}
		if err := runGit(ctx, root, "branch", "--set-upstream-to", "origin/"+branch, branch); err != nil {
			return "", err
		}
		if err := worktreeAdd(ctx, root, path, branch, ""); err != nil {
			return "", err
		}
		return path, nil
	}

	base := opts.BaseBranch
	if base == "" {
		base = DefaultBranch(ctx, root)
	}
	if err := worktreeAdd(ctx, root, path, branch, base); err != nil {
		return "", err
	}
	return path, nil
}

// Rename renames a branch and moves its worktree to the matching path.
// The two steps must not come apart: if the directory move fails after
// the ref rename succeeded, the rename is rolled back so branch and path
// stay paired.
func Rename(ctx context.Context, root, oldBranch, oldPath, newBranch string) (string, error) {
	if !IsValidBranchName(ctx, root, newBranch) {
		return "", ErrInvalidBranchName
	}
	if BranchExists(ctx, root, newBranch) {
		return "", ErrBranchExists
	}
	newPath := WorktreePath(root, newBranch)

	// Prepare the target directory first: once the ref is renamed, any
	// failure before the worktree move would leave branch and path apart.
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return "", err
	}
	if err := runGit(ctx, root, "branch", "-m", oldBranch, newBranch); err != nil {
		return "", err
	}
	if err := runGit(ctx, root, "worktree", "move", oldPath, newPath); err != nil {
		if rbErr := runGit(ctx, root, "branch", "-m", newBranch, oldBranch); rbErr != nil {
			return "", fmt.Errorf("moving worktree: %w (ref rollback also failed: %v)", err, rbErr)
		}
		return "", fmt.Errorf("moving worktree: %w", err)
	}
	return newPath, nil
}

// DeleteOptions controls Delete.
type DeleteOptions struct {
	// Force overrides the uncommitted-changes and unpushed-commits
	// safety checks.
	Force bool
}

// Delete removes a worktree and its local branch. The upstream branch is
// never touched. Without Force it refuses dirty worktrees
// (ErrUncommittedChanges) and branches with unpushed commits
// (ErrUnpushedCommits).
func Delete(ctx context.Context, root, path, branch string, opts DeleteOptions) error {
	if !opts.Force {
		if DiffCounts(ctx, path).Dirty {
			return ErrUncommittedChanges
		}
		if HasUnpushedCommits(ctx, root, branch) {
			return ErrUnpushedCommits
		}
	}

	if err := RemoveWorktreeOnly(ctx, root, path); err != nil {
		return err
	}
	if branch != "" {
		return runGit(ctx, root, "branch", "-D", branch)
	}
	return nil
}
