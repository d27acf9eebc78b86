package git

import "errors"

// Sentinel errors for the failure kinds callers branch on. Everything else
// surfaces as a plain error carrying the git stderr text.
var (
	// ErrNotARepository indicates the working directory is not inside a
	// git repository.
	ErrNotARepository = errors.New("not a git repository")

	// ErrBranchExists indicates a local branch (or its worktree path)
	// already exists for the requested name.
	ErrBranchExists = errors.New("branch already exists locally")

	// ErrWorktreeLocked indicates git refused to remove a locked worktree.
	ErrWorktreeLocked = errors.New("worktree is locked")

	// ErrUncommittedChanges blocks deletion of a dirty worktree unless
	// the caller overrides.
	ErrUncommittedChanges = errors.New("worktree has uncommitted changes")

	// ErrUnpushedCommits blocks deletion of a branch with commits missing
	// from its upstream unless the caller overrides.
	ErrUnpushedCommits = errors.New("branch has unpushed commits")

	// ErrInvalidBranchName indicates the requested name is not a valid
	// git ref name.
	ErrInvalidBranchName = errors.New("invalid branch name")
)
