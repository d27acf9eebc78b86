// Package convert turns an existing repository into the
// one-worktree-per-branch layout: a bare top-level repository whose
// branches each live in a worktree at <root>/<branch>.
//
// Converting a non-bare repository replaces the root working tree, so
// the conversion stages everything it removes into a backup directory
// first and rolls the whole thing back if any step fails.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/raphi011/gw/internal/git"
	"github.com/raphi011/gw/internal/log"
)

// ErrDirtyWorkingTree is returned when a non-bare repository has
// uncommitted or untracked changes at its root working tree.
var ErrDirtyWorkingTree = errors.New("working tree has uncommitted or untracked changes")

// Plan describes what a conversion would do.
type Plan struct {
	Root string
	Bare bool

	// MissingBranches need a worktree created at Root/<branch>.
	MissingBranches []string

	// Preserved are root entries that stay in place because they are
	// (or contain) existing worktree paths.
	Preserved []string

	// Conflicts are branches whose target path exists on disk but is
	// not a registered worktree. A plan with conflicts cannot run.
	Conflicts []string
}

// PlanFor inspects the repository at root and computes the conversion
// plan. Non-bare repositories with a dirty root working tree are
// rejected with ErrDirtyWorkingTree before anything is touched.
func PlanFor(ctx context.Context, root string) (Plan, error) {
	p := Plan{Root: root, Bare: git.IsBare(ctx, root)}

	branches, err := git.LocalBranches(ctx, root)
	if err != nil {
		return Plan{}, err
	}
	if len(branches) == 0 {
		return Plan{}, errors.New("no local branches found")
	}

	worktrees, err := git.ListWorktrees(ctx, root)
	if err != nil {
		return Plan{}, err
	}

	if !p.Bare && git.DiffCounts(ctx, root).Dirty {
		return Plan{}, ErrDirtyWorkingTree
	}

	rootAbs := canonical(root)

	byBranch := map[string]string{}
	var paths []string
	for _, wt := range worktrees {
		paths = append(paths, wt.Path)
		if wt.Branch != "" {
			byBranch[wt.Branch] = wt.Path
		}
	}

	for _, branch := range branches {
		path, hasWorktree := byBranch[branch]
		// A branch checked out at the repo root itself loses its
		// working tree during conversion and needs a real worktree.
		if hasWorktree && canonical(path) != rootAbs {
			continue
		}
		p.MissingBranches = append(p.MissingBranches, branch)
	}
	sort.Strings(p.MissingBranches)

	for _, branch := range p.MissingBranches {
		target := git.WorktreePath(root, branch)
		if _, err := os.Stat(target); err == nil {
			p.Conflicts = append(p.Conflicts, branch)
		}
	}

	p.Preserved = preservedEntries(rootAbs, paths)
	return p, nil
}

// preservedEntries returns the top-level entries under root that hold
// existing worktrees and therefore survive the conversion. ".git" and
// ".gw" are always preserved.
func preservedEntries(rootAbs string, worktreePaths []string) []string {
	keep := []string{".git", ".gw"}
	seen := map[string]bool{".git": true, ".gw": true}

	for _, path := range worktreePaths {
		abs := canonical(path)
		if abs == rootAbs {
			continue
		}
		rel, err := filepath.Rel(rootAbs, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		entry := strings.Split(filepath.ToSlash(rel), "/")[0]
		if entry != "" && !seen[entry] {
			seen[entry] = true
			keep = append(keep, entry)
		}
	}

	sort.Strings(keep)
	return keep
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Execute applies the plan. Bare repositories just gain the missing
// worktrees. Non-bare repositories go through the staged conversion.
func (p Plan) Execute(ctx context.Context) error {
	if len(p.Conflicts) > 0 {
		return fmt.Errorf("cannot create worktrees; paths already exist: %s", strings.Join(p.Conflicts, ", "))
	}

	if p.Bare {
		for _, branch := range p.MissingBranches {
			if _, err := git.AddWorktreeForBranch(ctx, p.Root, branch); err != nil {
				return fmt.Errorf("create worktree for %s: %w", branch, err)
			}
		}
		return nil
	}

	return p.convertWithRollback(ctx)
}

type stagedEntry struct {
	original string
	backup   string
}

func (p Plan) convertWithRollback(ctx context.Context) error {
	backupDir, err := createBackupDir(p.Root)
	if err != nil {
		return err
	}

	keep := map[string]bool{filepath.Base(backupDir): true}
	for _, entry := range p.Preserved {
		keep[entry] = true
	}

	var (
		staged      []stagedEntry
		created     []string
		bareChanged bool
	)

	convertErr := func() error {
		staged, err = stageRootEntries(p.Root, keep, backupDir)
		if err != nil {
			return err
		}

		if err := git.SetBare(ctx, p.Root, true); err != nil {
			return fmt.Errorf("set core.bare: %w", err)
		}
		bareChanged = true

		for _, branch := range p.MissingBranches {
			path, err := git.AddWorktreeForBranch(ctx, p.Root, branch)
			if err != nil {
				return fmt.Errorf("create worktree for %s: %w", branch, err)
			}
			created = append(created, path)
		}

		return p.postcheck(ctx)
	}()

	if convertErr == nil {
		if err := os.RemoveAll(backupDir); err != nil {
			log.FromContext(ctx).Warnf("conversion succeeded, but removing backup %s failed: %v", backupDir, err)
		}
		return nil
	}

	if rollbackErrs := rollback(ctx, p.Root, backupDir, staged, created, bareChanged); len(rollbackErrs) > 0 {
		return fmt.Errorf("%w\nrollback encountered errors:\n%s", convertErr, strings.Join(rollbackErrs, "\n"))
	}
	return convertErr
}

// postcheck verifies every planned branch ended up with a registered
// worktree before the backup is discarded.
func (p Plan) postcheck(ctx context.Context) error {
	worktrees, err := git.ListWorktrees(ctx, p.Root)
	if err != nil {
		return err
	}
	have := map[string]bool{}
	for _, wt := range worktrees {
		have[wt.Branch] = true
	}
	for _, branch := range p.MissingBranches {
		if !have[branch] {
			return fmt.Errorf("post-check failed; worktree for branch %s was not registered", branch)
		}
	}
	return nil
}

func createBackupDir(root string) (string, error) {
	pid := os.Getpid()
	for attempt := 0; attempt < 50; attempt++ {
		candidate := filepath.Join(root, fmt.Sprintf(".gw-init-backup-%d-%d", pid, attempt))
		err := os.Mkdir(candidate, 0o700)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create backup directory: %w", err)
		}
	}
	return "", fmt.Errorf("failed to allocate a unique backup directory under %s", root)
}

func stageRootEntries(root string, keep map[string]bool, backupDir string) ([]stagedEntry, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	var staged []stagedEntry
	for _, entry := range entries {
		name := entry.Name()
		if keep[name] {
			continue
		}
		source := filepath.Join(root, name)
		backup := filepath.Join(backupDir, name)
		if err := os.Rename(source, backup); err != nil {
			return staged, fmt.Errorf("stage %s into backup: %w", source, err)
		}
		staged = append(staged, stagedEntry{original: source, backup: backup})
	}
	return staged, nil
}

func rollback(ctx context.Context, root, backupDir string, staged []stagedEntry, created []string, bareChanged bool) []string {
	var errs []string

	for i := len(created) - 1; i >= 0; i-- {
		if err := git.RemoveWorktreeOnly(ctx, root, created[i]); err != nil {
			errs = append(errs, fmt.Sprintf("- failed to remove created worktree %s: %v", created[i], err))
		}
	}

	if bareChanged {
		if err := git.SetBare(ctx, root, false); err != nil {
			errs = append(errs, fmt.Sprintf("- failed to restore core.bare=false: %v", err))
		}
	}

	for i := len(staged) - 1; i >= 0; i-- {
		if err := os.Rename(staged[i].backup, staged[i].original); err != nil {
			errs = append(errs, fmt.Sprintf("- failed to restore %s from backup: %v", staged[i].original, err))
		}
	}

	if err := os.RemoveAll(backupDir); err != nil {
		errs = append(errs, fmt.Sprintf("- failed to remove backup directory %s: %v", backupDir, err))
	}

	return errs
}
