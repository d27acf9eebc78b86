package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphi011/gw/internal/doctor"
	"github.com/raphi011/gw/internal/log"
)

func newDoctorCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Reconcile worktrees and branches",
		Args:  cobra.NoArgs,
		Long: `Check that every local branch has exactly one worktree at its expected
path and repair divergences.

Recoverable issues (a branch without a worktree, a worktree whose branch
is gone) are fixed after confirmation. Issues that need manual
intervention, like detached worktrees, are reported with guidance and
never touched.

Examples:
  gw doctor          # Show the repair plan and ask before fixing
  gw doctor --fix    # Apply fixes without asking`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lg := log.FromContext(ctx)

			root, err := currentRepoRoot(ctx)
			if err != nil {
				return err
			}

			report, err := doctor.Scan(ctx, root)
			if err != nil {
				return err
			}
			if report.Clean() {
				lg.Println("gw doctor: everything is in order")
				return nil
			}

			printReport(ctx, root, report)

			if len(report.Actions) == 0 {
				return fmt.Errorf("nothing can be fixed automatically; see the guidance above")
			}

			if !fix {
				ok, err := confirm(ctx, "Apply these fixes now?")
				if err != nil {
					return err
				}
				if !ok {
					lg.Println("gw doctor: cancelled")
					return nil
				}
			}

			var failed int
			for _, outcome := range doctor.Execute(ctx, root, report.Actions) {
				if outcome.Err != nil {
					failed++
					lg.Warnf("%s %s: %v\n", outcome.Action.Kind, outcome.Action.Path, outcome.Err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d fixes failed", failed, len(report.Actions))
			}

			// Re-scan so leftovers surface immediately.
			after, err := doctor.Scan(ctx, root)
			if err != nil {
				return err
			}
			if !after.Clean() {
				lg.Println("gw doctor: issues remain after repair:")
				printReport(ctx, root, after)
				return fmt.Errorf("repair incomplete")
			}
			lg.Println("gw doctor: setup repaired")
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Apply fixes without asking for confirmation")

	return cmd
}
