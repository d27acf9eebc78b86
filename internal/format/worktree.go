// Package format renders worktree row fields as table cells. Pure
// string building, no I/O, so the interactive session and plain list
// output share one source of truth for presentation.
package format

import (
	"fmt"
	"time"

	"github.com/raphi011/gw/internal/store"
)

// RelativeTime renders a unix timestamp as a coarse "3h ago" style
// string. Zero and negative timestamps render as "unknown".
func RelativeTime(now time.Time, ts int64) string {
	if ts <= 0 {
		return "unknown"
	}
	delta := now.Unix() - ts
	if delta < 0 {
		delta = 0
	}

	switch {
	case delta < 60:
		return fmt.Sprintf("%ds ago", delta)
	case delta < 3600:
		return fmt.Sprintf("%dm ago", delta/60)
	case delta < 86_400:
		return fmt.Sprintf("%dh ago", delta/3600)
	case delta < 604_800:
		return fmt.Sprintf("%dd ago", delta/86_400)
	case delta < 2_629_800:
		return fmt.Sprintf("%dw ago", delta/604_800)
	default:
		return fmt.Sprintf("%dmo ago", delta/2_629_800)
	}
}

// PullPush renders the upstream sync cell: "2↓ 1↑", a merged marker when
// the PR merged and its remote branch is gone, and a dirty marker.
func PullPush(r store.Row) string {
	var cell string
	switch {
	case r.PRMerged && r.PRUpstreamDeleted:
		cell = "merged (remote deleted)"
	case r.Pull != 0 || r.Push != 0:
		cell = fmt.Sprintf("%d↓ %d↑", r.Pull, r.Push)
	}

	if r.Dirty {
		if cell == "" {
			return "(dirty)"
		}
		return cell + " (dirty)"
	}
	return cell
}

// PR renders the pull-request cell. The target branch only shows when it
// differs from the repository default.
func PR(r store.Row, defaultBranch string) string {
	if r.PRNumber == nil {
		return ""
	}
	cell := fmt.Sprintf("#%d", *r.PRNumber)
	if r.PRMerged {
		if r.PRUpstreamDeleted {
			cell += " merged (remote deleted)"
		} else {
			cell += " merged"
		}
	}
	if r.PRTargetBranch != nil && *r.PRTargetBranch != "" && *r.PRTargetBranch != defaultBranch {
		cell += " -> " + *r.PRTargetBranch
	}
	return cell
}

// Checks renders the CI rollup cell: "3/5", with an ellipsis while runs
// are still pending. Empty when no checks are known.
func Checks(r store.Row) string {
	if r.ChecksTotal == nil {
		return ""
	}
	passed := 0
	if r.ChecksPassed != nil {
		passed = *r.ChecksPassed
	}
	cell := fmt.Sprintf("%d/%d", passed, *r.ChecksTotal)
	if r.ChecksPending {
		cell += "…"
	}
	return cell
}

// BehindAhead renders the default-branch divergence cell.
func BehindAhead(r store.Row) string {
	return fmt.Sprintf("%d|%d", r.Behind, r.Ahead)
}

// Changes renders the uncommitted diff stat cell.
func Changes(r store.Row) string {
	return fmt.Sprintf("+%d -%d", r.Added, r.Removed)
}
