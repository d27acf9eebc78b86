package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/raphi011/gw/internal/cmd"
)

// GitHub implements Forge using the gh CLI. All commands run with the
// repository root as working directory so gh resolves the right repo.
type GitHub struct {
	repoRoot string
}

// NewGitHub creates a GitHub forge for the repository at root.
func NewGitHub(root string) *GitHub {
	return &GitHub{repoRoot: root}
}

// Check verifies that the gh CLI is available and authenticated.
func (g *GitHub) Check(ctx context.Context) error {
	if _, err := exec.LookPath("gh"); err != nil {
		return fmt.Errorf("%w: gh not found, install GitHub CLI (https://cli.github.com)", ErrUnavailable)
	}
	if err := cmd.RunContext(ctx, g.repoRoot, "gh", "auth", "status"); err != nil {
		return fmt.Errorf("%w: gh not authenticated, run 'gh auth login'", ErrUnavailable)
	}
	return nil
}

type prListItem struct {
	Number      int    `json:"number"`
	State       string `json:"state"`
	BaseRefName string `json:"baseRefName"`
	MergedAt    string `json:"mergedAt"`
	URL         string `json:"url"`
}

// PullRequestFor returns the most recent PR (any state) with branch as
// head, or nil when there is none.
func (g *GitHub) PullRequestFor(ctx context.Context, branch string) (*PullRequest, error) {
	out, err := cmd.OutputContext(ctx, g.repoRoot, "gh", "pr", "list",
		"--state", "all",
		"--head", branch,
		"--json", "number,state,baseRefName,mergedAt,url",
		"--limit", "1")
	if err != nil {
		return nil, fmt.Errorf("gh pr list: %w", err)
	}
	return parsePRList(out)
}

func parsePRList(data []byte) (*PullRequest, error) {
	var items []prListItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing gh pr list output: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	first := items[0]
	return &PullRequest{
		Number:       first.Number,
		TargetBranch: first.BaseRefName,
		Merged:       first.MergedAt != "" || strings.EqualFold(first.State, "MERGED"),
		URL:          first.URL,
	}, nil
}

type checkNode struct {
	State      string `json:"state"`
	Conclusion string `json:"conclusion"`
}

type checksView struct {
	StatusCheckRollup []checkNode `json:"statusCheckRollup"`
}

// ChecksFor returns the CI rollup for a PR, or nil when no checks are
// attached.
func (g *GitHub) ChecksFor(ctx context.Context, prNumber int) (*Checks, error) {
	out, err := cmd.OutputContext(ctx, g.repoRoot, "gh", "pr", "view",
		strconv.Itoa(prNumber),
		"--json", "statusCheckRollup")
	if err != nil {
		return nil, fmt.Errorf("gh pr view: %w", err)
	}

	var view checksView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("parsing gh pr view output: %w", err)
	}
	if len(view.StatusCheckRollup) == 0 {
		return nil, nil
	}
	rollup := classifyChecks(view.StatusCheckRollup)
	return &rollup, nil
}

// classifyChecks folds individual check runs into a rollup. SUCCESS,
// NEUTRAL and SKIPPED conclusions count as passed; a run that has not
// reached COMPLETED, or reports no conclusion yet, marks the rollup
// pending.
func classifyChecks(nodes []checkNode) Checks {
	rollup := Checks{Total: len(nodes)}
	for _, n := range nodes {
		if n.State != "" && n.State != "COMPLETED" {
			rollup.Pending = true
		}
		switch n.Conclusion {
		case "SUCCESS", "NEUTRAL", "SKIPPED":
			rollup.Passed++
		case "":
			rollup.Pending = true
		}
	}
	return rollup
}
