package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/gw/internal/convert"
	"github.com/raphi011/gw/internal/log"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Convert the repository to the worktree-per-branch layout",
		Args:  cobra.NoArgs,
		Long: `Convert the current repository so every local branch has a worktree at
<repo-root>/<branch>.

On a bare repository this just creates the missing worktrees. On a
normal repository the root working tree is replaced: the root becomes
bare, and its checkout moves into a worktree. The conversion is staged
through a backup directory and rolled back if any step fails.

A dirty root working tree is refused; commit or stash first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lg := log.FromContext(ctx)

			root, err := currentRepoRoot(ctx)
			if err != nil {
				return err
			}

			plan, err := convert.PlanFor(ctx, root)
			if err != nil {
				if errors.Is(err, convert.ErrDirtyWorkingTree) {
					return fmt.Errorf("%w; commit or stash before running 'gw init'", err)
				}
				return err
			}

			if len(plan.Conflicts) > 0 {
				return fmt.Errorf("cannot create worktrees; paths already exist: %s", strings.Join(plan.Conflicts, ", "))
			}

			if plan.Bare {
				lg.Printf("gw init will initialize worktrees under %s\n", root)
				if len(plan.MissingBranches) == 0 {
					lg.Println("- no new worktrees to create")
					return nil
				}
				lg.Printf("- create worktrees for %d local branches\n", len(plan.MissingBranches))
			} else {
				lg.Printf("gw init will convert %s into a worktree-per-branch layout:\n", root)
				lg.Println("- delete the current working tree at the repo root")
				lg.Println("- keep only the bare repo in the top-level .git directory")
				lg.Println("- ensure every local branch has a worktree")
				if len(plan.MissingBranches) > 0 {
					lg.Printf("- create %d new worktrees under %s/<branch>\n", len(plan.MissingBranches), root)
				}
				if preserved := withoutInternal(plan.Preserved); len(preserved) > 0 {
					lg.Printf("- preserve existing worktree paths: %s\n", strings.Join(preserved, ", "))
				}
			}

			ok, err := confirm(ctx, "Continue?")
			if err != nil {
				return err
			}
			if !ok {
				lg.Println("gw init: cancelled")
				return nil
			}

			if err := plan.Execute(ctx); err != nil {
				return err
			}
			lg.Println("gw init: done")
			return nil
		},
	}

	return cmd
}

func withoutInternal(entries []string) []string {
	var out []string
	for _, e := range entries {
		if e != ".git" && e != ".gw" {
			out = append(out, e)
		}
	}
	return out
}
