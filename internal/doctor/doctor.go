// Package doctor reconciles the branch↔worktree bijection. It scans git
// state, classifies violations into auto-fixable actions and
// unrecoverable conditions, and executes a confirmed plan one action at
// a time. The caller re-runs the scan afterwards to confirm resolution;
// the reconciler never loops internally.
package doctor

import (
	"context"
	"fmt"
	"sort"

	"github.com/raphi011/gw/internal/git"
)

// ActionKind is the repair a single plan entry performs.
type ActionKind int

const (
	// CreateWorktree checks a branch without a worktree out into its
	// derived path.
	CreateWorktree ActionKind = iota
	// RemoveWorktree removes a worktree that has no valid local branch.
	RemoveWorktree
)

func (k ActionKind) String() string {
	switch k {
	case CreateWorktree:
		return "create worktree"
	case RemoveWorktree:
		return "remove worktree"
	default:
		return "unknown"
	}
}

// Action is one proposed repair.
type Action struct {
	Kind   ActionKind
	Branch string // set for CreateWorktree
	Path   string
	Reason string
}

// Unrecoverable is a violation that needs manual intervention and is
// never auto-fixed.
type Unrecoverable struct {
	Path     string
	Reason   string
	Guidance string
}

// Report is the ordered repair plan produced by a scan.
type Report struct {
	Actions       []Action
	Unrecoverable []Unrecoverable
}

// Clean reports whether the scan found nothing to do.
func (r Report) Clean() bool {
	return len(r.Actions) == 0 && len(r.Unrecoverable) == 0
}

// Outcome is the result of executing one action.
type Outcome struct {
	Action Action
	Err    error
}

// Scan gathers git state and produces the repair plan for the
// repository at root.
func Scan(ctx context.Context, root string) (Report, error) {
	worktrees, err := git.ListWorktrees(ctx, root)
	if err != nil {
		return Report{}, err
	}
	branches, err := git.LocalBranches(ctx, root)
	if err != nil {
		return Report{}, err
	}
	return Classify(root, worktrees, branches), nil
}

// Classify builds the repair plan from observed worktrees and branches.
// Create actions come before removals so a branch that is both missing
// its worktree and shadowed by a stale directory resolves cleanly in one
// pass.
func Classify(root string, worktrees []git.Worktree, branches []string) Report {
	branchSet := make(map[string]bool, len(branches))
	for _, b := range branches {
		branchSet[b] = true
	}

	var report Report
	seen := map[string]string{} // branch -> first worktree path

	for _, wt := range worktrees {
		switch {
		case wt.Detached:
			report.Unrecoverable = append(report.Unrecoverable, Unrecoverable{
				Path:     wt.Path,
				Reason:   "worktree has a detached HEAD",
				Guidance: "check out a branch in this worktree, or remove it manually with `git worktree remove`",
			})
		case wt.Prunable:
			report.Actions = append(report.Actions, Action{
				Kind:   RemoveWorktree,
				Path:   wt.Path,
				Reason: "worktree directory is gone but git still tracks it",
			})
		case !branchSet[wt.Branch]:
			report.Actions = append(report.Actions, Action{
				Kind:   RemoveWorktree,
				Path:   wt.Path,
				Reason: fmt.Sprintf("checked-out branch %q no longer exists", wt.Branch),
			})
		case seen[wt.Branch] != "":
			report.Unrecoverable = append(report.Unrecoverable, Unrecoverable{
				Path:     wt.Path,
				Reason:   fmt.Sprintf("branch %q is checked out in multiple worktrees (also at %s)", wt.Branch, seen[wt.Branch]),
				Guidance: "remove one of the two worktrees manually",
			})
		default:
			seen[wt.Branch] = wt.Path
		}
	}

	var missing []string
	for _, b := range branches {
		if seen[b] == "" {
			missing = append(missing, b)
		}
	}
	sort.Strings(missing)

	// Creations go first; see above.
	creates := make([]Action, 0, len(missing))
	for _, b := range missing {
		creates = append(creates, Action{
			Kind:   CreateWorktree,
			Branch: b,
			Path:   git.WorktreePath(root, b),
			Reason: "branch has no worktree",
		})
	}
	report.Actions = append(creates, report.Actions...)
	return report
}

// Execute runs each action independently: a failure is recorded in its
// outcome and never blocks the remaining actions.
func Execute(ctx context.Context, root string, actions []Action) []Outcome {
	outcomes := make([]Outcome, 0, len(actions))
	for _, action := range actions {
		var err error
		switch action.Kind {
		case CreateWorktree:
			_, err = git.AddWorktreeForBranch(ctx, root, action.Branch)
		case RemoveWorktree:
			err = git.RemoveWorktreeOnly(ctx, root, action.Path)
			if err != nil {
				// Stale administrative entries have no directory left
				// to remove; prune handles those.
				git.PruneWorktrees(ctx, root)
				if stillThere(ctx, root, action.Path) {
					break
				}
				err = nil
			}
		}
		outcomes = append(outcomes, Outcome{Action: action, Err: err})
	}
	return outcomes
}

func stillThere(ctx context.Context, root, path string) bool {
	worktrees, err := git.ListWorktrees(ctx, root)
	if err != nil {
		return true
	}
	for _, wt := range worktrees {
		if wt.Path == path {
			return true
		}
	}
	return false
}
