package git

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// AheadBehind counts commits on one tip that are missing from another.
// Which tips are compared is the caller's choice: the default branch for
// the ahead/behind columns, the upstream for pull/push.
type AheadBehind struct {
	Ahead  int
	Behind int
}

// DiffStat summarizes the uncommitted state of a working tree.
type DiffStat struct {
	Added   int
	Removed int
	Dirty   bool
}

// CountAheadBehind compares left to right using a symmetric-difference
// rev-list. Missing refs count as zero; callers treat this as a
// best-effort read.
func CountAheadBehind(ctx context.Context, root, left, right string) AheadBehind {
	out, ok := tryGit(ctx, root, "rev-list", "--left-right", "--count", left+"..."+right)
	if !ok {
		return AheadBehind{}
	}

	fields := strings.Fields(out)
	if len(fields) < 2 {
		return AheadBehind{}
	}
	ahead, _ := strconv.Atoi(fields[0])
	behind, _ := strconv.Atoi(fields[1])
	return AheadBehind{Ahead: ahead, Behind: behind}
}

// DiffCounts returns added/removed line counts and the dirty flag for a
// worktree's uncommitted state. Untracked files count one added line each,
// matching how the summary column treats a brand-new file before staging.
func DiffCounts(ctx context.Context, worktreePath string) DiffStat {
	if info, err := os.Stat(worktreePath); err != nil || !info.IsDir() {
		return DiffStat{}
	}

	status, _ := tryGit(ctx, worktreePath, "status", "--porcelain")
	stat := DiffStat{Dirty: strings.TrimSpace(status) != ""}

	numstat, _ := tryGit(ctx, worktreePath, "diff", "--numstat")
	for _, line := range strings.Split(numstat, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		// Binary files report "-" and are skipped.
		added, errA := strconv.Atoi(parts[0])
		removed, errR := strconv.Atoi(parts[1])
		if errA != nil || errR != nil {
			continue
		}
		stat.Added += added
		stat.Removed += removed
	}

	for _, line := range strings.Split(status, "\n") {
		if strings.HasPrefix(line, "?? ") {
			stat.Added++
		}
	}
	return stat
}

// LastCommitTime returns the unix timestamp of the last commit reachable
// from target, or 0 when there is none.
func LastCommitTime(ctx context.Context, root, target string) int64 {
	out, ok := tryGit(ctx, root, "log", "-1", "--format=%ct", target)
	if !ok {
		return 0
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// Upstream returns the upstream tracking ref of a branch, or ok=false
// when none is configured.
func Upstream(ctx context.Context, root, ref string) (string, bool) {
	return tryGit(ctx, root, "rev-parse", "--abbrev-ref", ref+"@{upstream}")
}

// HasUnpushedCommits reports whether branch has commits its upstream does
// not. A branch with no upstream at all counts as unpushed.
func HasUnpushedCommits(ctx context.Context, root, branch string) bool {
	upstream, ok := Upstream(ctx, root, branch)
	if !ok {
		return true
	}
	return CountAheadBehind(ctx, root, branch, upstream).Ahead > 0
}
