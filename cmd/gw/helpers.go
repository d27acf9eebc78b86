package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/raphi011/gw/internal/doctor"
	"github.com/raphi011/gw/internal/git"
	"github.com/raphi011/gw/internal/log"
)

func currentRepoRoot(ctx context.Context) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := git.RepoRoot(ctx, wd)
	if err != nil {
		if errors.Is(err, git.ErrNotARepository) {
			return "", errors.New("not inside a git repository")
		}
		return "", err
	}
	return root, nil
}

// confirm prompts on the logger's writer (stderr) and reads an answer
// from stdin. Prompts never go to stdout, which carries the selected
// path for the shell wrapper.
func confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(log.FromContext(ctx).Writer(), "%s [y/N]: ", prompt)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func printReport(ctx context.Context, root string, report doctor.Report) {
	w := log.FromContext(ctx).Writer()
	fmt.Fprintf(w, "Detected issues with the worktree setup in %s\n\n", root)

	var creates, removes []doctor.Action
	for _, a := range report.Actions {
		if a.Kind == doctor.CreateWorktree {
			creates = append(creates, a)
		} else {
			removes = append(removes, a)
		}
	}

	if len(creates) > 0 {
		fmt.Fprintf(w, "- branches without worktrees to create: %d\n", len(creates))
		for _, a := range creates {
			fmt.Fprintf(w, "  - %s -> %s\n", a.Branch, a.Path)
		}
	}
	if len(removes) > 0 {
		fmt.Fprintf(w, "- worktrees without branches to delete: %d\n", len(removes))
		for _, a := range removes {
			fmt.Fprintf(w, "  - %s (%s)\n", a.Path, a.Reason)
		}
	}
	if len(report.Unrecoverable) > 0 {
		fmt.Fprintln(w, "- unrecoverable issues:")
		for _, u := range report.Unrecoverable {
			fmt.Fprintf(w, "  - %s: %s (%s)\n", u.Path, u.Reason, u.Guidance)
		}
	}
	fmt.Fprintln(w)
}

// repairInteractively shows the repair plan, asks for confirmation and
// executes it. Returns false when the user declined.
func repairInteractively(ctx context.Context, root string, report doctor.Report) (bool, error) {
	printReport(ctx, root, report)

	if len(report.Unrecoverable) > 0 {
		return false, errors.New("setup is not recoverable automatically; see the guidance above")
	}

	ok, err := confirm(ctx, "Apply these fixes now?")
	if err != nil {
		return false, err
	}
	if !ok {
		log.FromContext(ctx).Println("gw: cancelled")
		return false, nil
	}

	var failed int
	for _, outcome := range doctor.Execute(ctx, root, report.Actions) {
		if outcome.Err != nil {
			failed++
			log.FromContext(ctx).Warnf("%s %s: %v\n", outcome.Action.Kind, outcome.Action.Path, outcome.Err)
		}
	}
	if failed > 0 {
		return false, fmt.Errorf("%d of %d fixes failed", failed, len(report.Actions))
	}
	log.FromContext(ctx).Println("gw: setup repaired")
	return true, nil
}
