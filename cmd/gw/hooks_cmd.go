package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/gw/internal/cmd"
	"github.com/raphi011/gw/internal/hooks"
	"github.com/raphi011/gw/internal/log"
)

func newHooksCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hooks",
		Short: "Manage post-create hooks",
		Long: `Manage hooks that run after a worktree is created.

Hooks live in .gw/settings.json at the repository root and run via
'sh -c' inside the new worktree, in order, stopping at the first
failure.`,
	}

	root.AddCommand(newHooksAddCmd(), newHooksRerunCmd())
	return root
}

func newHooksAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <command>",
		Short: "Add a post-create hook command",
		Args:  cobra.ExactArgs(1),
		Example: `  gw hooks add 'npm install'
  gw hooks add 'direnv allow'`,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()

			repoRoot, err := currentRepoRoot(ctx)
			if err != nil {
				return err
			}
			if err := hooks.Add(repoRoot, hooks.PostWorktreeCreation, args[0]); err != nil {
				return err
			}
			log.FromContext(ctx).Println("gw hooks add: hook added")
			return nil
		},
	}
}

func newHooksRerunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rerun",
		Short: "Re-run post-create hooks in the current worktree",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()

			repoRoot, err := currentRepoRoot(ctx)
			if err != nil {
				return err
			}

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			out, err := cmd.OutputContext(ctx, wd, "git", "rev-parse", "--show-toplevel")
			if err != nil {
				return fmt.Errorf("not inside a git worktree: %w", err)
			}
			worktree := filepath.Clean(strings.TrimSpace(string(out)))
			if resolved, err := filepath.EvalSymlinks(worktree); err == nil {
				worktree = resolved
			}

			if err := hooks.Run(ctx, repoRoot, hooks.PostWorktreeCreation, worktree); err != nil {
				return err
			}
			log.FromContext(ctx).Printf("gw hooks rerun: hooks executed in %s\n", worktree)
			return nil
		},
	}
}
