package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/raphi011/gw/internal/config"
	"github.com/raphi011/gw/internal/doctor"
	"github.com/raphi011/gw/internal/forge"
	"github.com/raphi011/gw/internal/git"
	"github.com/raphi011/gw/internal/log"
	"github.com/raphi011/gw/internal/output"
	"github.com/raphi011/gw/internal/store"
	gwsync "github.com/raphi011/gw/internal/sync"
	"github.com/raphi011/gw/internal/ui"
)

var (
	// Global flags
	verbose bool
	quiet   bool
)

// rootCmd is the base command. Without a subcommand it opens the
// interactive worktree session.
var rootCmd = &cobra.Command{
	Use:   "gw",
	Short: "Interactive git worktree manager",
	Long: `gw keeps one worktree per local branch under the repository root and
manages them from an interactive table: create, rename, delete, pull,
push and jump between worktrees without leaving the terminal.

On exit the selected worktree path is printed to stdout, so a shell
wrapper (see 'gw shell-init') can cd into it.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2,
	Args:                       cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip git check for completion and help commands
		if cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "help" {
			return nil
		}
		return git.CheckGit()
	},
	RunE: runSession,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse global flags up front so the logger sees them; cobra
	// re-parses during Execute.
	_ = rootCmd.ParseFlags(os.Args[1:])

	// Diagnostics go to stderr, primary data to stdout.
	logger := log.New(os.Stderr, verbose, quiet)
	ctx = log.WithLogger(ctx, logger)
	ctx = output.WithPrinter(ctx, os.Stdout)

	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gw: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show external commands being executed")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(
		newDoctorCmd(),
		newInitCmd(),
		newHooksCmd(),
		newShellInitCmd(),
	)
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	l := log.FromContext(ctx)

	root, err := currentRepoRoot(ctx)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		l.Warnf("%v", err)
		cfg = config.Default()
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd())

	git.PruneWorktrees(ctx, root)

	report, err := doctor.Scan(ctx, root)
	if err != nil {
		return err
	}
	if !report.Clean() {
		if !interactive {
			return errors.New("worktree/branch inconsistencies detected; rerun in an interactive terminal to repair them, or run 'gw doctor'")
		}
		repaired, err := repairInteractively(ctx, root, report)
		if err != nil {
			return err
		}
		if !repaired {
			return nil
		}
	}

	defaultBranch := cfg.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = git.DefaultBranch(ctx, root)
	}

	if !interactive {
		worktrees, err := git.ListWorktrees(ctx, root)
		if err != nil {
			return err
		}
		p := output.FromContext(ctx)
		for _, wt := range worktrees {
			p.Println(wt.Path)
		}
		return nil
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir, err = store.DefaultDir()
		if err != nil {
			return err
		}
	}
	st, err := store.Open(cacheDir, root)
	if err != nil {
		return fmt.Errorf("open worktree cache: %w", err)
	}
	defer st.Close()
	if st.Reinitialized {
		l.Warnf("worktree cache was unreadable and has been reset")
	}

	rows, err := st.Load()
	if err != nil {
		return fmt.Errorf("load worktree cache: %w", err)
	}

	var f forge.Forge
	if cfg.ForgeEnabled() {
		f = forge.NewGitHub(root)
	}

	eng := gwsync.New(root, st, f, defaultBranch)

	lastSelected, err := st.LastSelected()
	if err != nil {
		l.Warnf("%v", err)
	}

	selected, err := ui.Run(ctx, ui.Params{
		Root:          root,
		Config:        cfg,
		DefaultBranch: defaultBranch,
		Rows:          rows,
		Engine:        eng,
		InitialPath:   lastSelected,
	})
	if err != nil {
		return err
	}
	if selected != "" {
		if err := st.SetLastSelected(selected); err != nil {
			l.Warnf("%v", err)
		}
		output.FromContext(ctx).Println(selected)
	}
	return nil
}
