package forge

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the review-platform CLI is missing or not
// authenticated. Callers report this once per session and degrade to
// unknown review fields instead of failing every lookup.
var ErrUnavailable = errors.New("review platform integration unavailable")

// PullRequest is the review-platform state of one branch's PR.
type PullRequest struct {
	Number       int
	TargetBranch string
	Merged       bool
	URL          string
}

// Checks is the aggregate CI rollup of a pull request.
type Checks struct {
	Passed  int
	Total   int
	Pending bool
}

// Forge looks up review state for branches of one repository.
type Forge interface {
	// Check verifies the platform CLI is installed and authenticated.
	// Returns an error wrapping ErrUnavailable when it is not.
	Check(ctx context.Context) error

	// PullRequestFor returns the most recent PR whose head is branch,
	// or nil when the branch has none.
	PullRequestFor(ctx context.Context, branch string) (*PullRequest, error)

	// ChecksFor returns the CI rollup for a PR, or nil when the PR has
	// no checks attached.
	ChecksFor(ctx context.Context, prNumber int) (*Checks, error)
}
