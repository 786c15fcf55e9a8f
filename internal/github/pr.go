// Package github wraps the gh CLI for pull request lookups.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/numberone-ai/machina-tools/internal/cmd"
)

// PullRequest is a read-only projection of a GitHub pull request.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"` // OPEN, MERGED, CLOSED
	HeadRef   string     `json:"headRefName"`
	BaseRef   string     `json:"baseRefName"`
	URL       string     `json:"url"`
	Author    Author     `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
	MergedAt  *time.Time `json:"mergedAt"`
	ClosedAt  *time.Time `json:"closedAt"`
}

// Author identifies a PR author.
type Author struct {
	Login string `json:"login"`
}

const prFields = "number,title,state,headRefName,baseRefName,url,author,createdAt,mergedAt,closedAt"

// GetPullRequest fetches a PR by number. Returns nil without error when the
// PR doesn't exist.
func GetPullRequest(ctx context.Context, org, repo string, number int) (*PullRequest, error) {
	out, err := cmd.OutputContext(ctx, "", "gh", "pr", "view", strconv.Itoa(number),
		"--repo", org+"/"+repo,
		"--json", prFields)
	if err != nil {
		// gh exits non-zero for unknown PRs; treat every failure as not found,
		// matching the lookup-or-nothing contract callers rely on.
		return nil, nil
	}

	var pr PullRequest
	if err := json.Unmarshal(out, &pr); err != nil {
		return nil, fmt.Errorf("parse gh output: %w", err)
	}
	return &pr, nil
}

// FindPRByBranch returns the number of the first PR whose head branch matches,
// or 0 when none exists.
func FindPRByBranch(ctx context.Context, org, repo, branch string) (int, error) {
	out, err := cmd.OutputContext(ctx, "", "gh", "pr", "list",
		"--repo", org+"/"+repo,
		"--head", branch,
		"--json", "number",
		"--jq", ".[0].number")
	if err != nil {
		return 0, nil
	}

	s := strings.TrimSpace(string(out))
	if s == "" || s == "null" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// ListPRsForBranch returns PRs (any state) whose head branch matches.
func ListPRsForBranch(ctx context.Context, org, repo, branch string, limit int) ([]PullRequest, error) {
	out, err := cmd.OutputContext(ctx, "", "gh", "pr", "list",
		"--repo", org+"/"+repo,
		"--head", branch,
		"--state", "all",
		"--json", prFields,
		"--limit", strconv.Itoa(limit))
	if err != nil {
		return nil, fmt.Errorf("gh pr list: %w", err)
	}

	var prs []PullRequest
	if err := json.Unmarshal(out, &prs); err != nil {
		return nil, fmt.Errorf("parse gh output: %w", err)
	}
	return prs, nil
}

// ClosePR closes a PR with a comment.
func ClosePR(ctx context.Context, org, repo string, number int, comment string) error {
	return cmd.RunContext(ctx, "", "gh", "pr", "close", strconv.Itoa(number),
		"--repo", org+"/"+repo,
		"--comment", comment)
}
