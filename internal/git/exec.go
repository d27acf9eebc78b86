package git

import (
	"context"
	"strings"

	"github.com/raphi011/gw/internal/cmd"
)

// gitArgs prepends -C <dir> to args if dir is non-empty.
func gitArgs(dir string, args []string) []string {
	if dir == "" {
		return args
	}
	return append([]string{"-C", dir}, args...)
}

// runGit executes a git command with context support and verbose logging.
func runGit(ctx context.Context, dir string, args ...string) error {
	return cmd.RunContext(ctx, "", "git", gitArgs(dir, args)...)
}

// outputGit executes a git command with context support and verbose logging,
// returning trimmed stdout.
func outputGit(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := cmd.OutputContext(ctx, "", "git", gitArgs(dir, args)...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// tryGit is outputGit with errors collapsed to ok=false. Used for
// best-effort reads where a missing ref or upstream is not an error.
func tryGit(ctx context.Context, dir string, args ...string) (string, bool) {
	out, err := outputGit(ctx, dir, args...)
	if err != nil {
		return "", false
	}
	return out, true
}
