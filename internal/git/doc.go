// Package git wraps all local git operations for gw: worktree enumeration,
// ahead/behind counting, diff stats, and the composite create/rename/delete
// operations that keep the branch↔worktree pairing intact.
//
// The package shells out to the git CLI (see [github.com/raphi011/gw/internal/cmd])
// and holds no state of its own. Callers pass the repository root explicitly;
// nothing here caches or renders.
package git
