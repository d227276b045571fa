// Package scheduler ties the lower components together into the
// daemon's main loop: per-tick integrity check, admission, per-issue
// processing, auto-merge, and closed-issue window cleanup.
package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/logging"
)

// lgtmLabel is the PR-side approval flag the auto-merge service looks for.
const lgtmLabel = "lgtm"

// mergedLabel is applied to the issue a merged PR closes.
const mergedLabel = "merged"

// closesPattern matches GitHub's own "closes #N" family of closing
// keywords (case-insensitive), the only place this daemon derives an
// issue number from free text rather than from a label.
var closesPattern = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s*:?\s*#(\d+)`)

// IssueNumberFromBody extracts the issue number a PR body's closing
// keyword references, or ok=false if none is found. Spec's
// get_pr_issue_number is realized as this pure parse rather than a
// GitHub API call: the REST API doesn't expose the linkage directly
// for arbitrary closing syntax, so the daemon reads it the same way a
// human reviewer would.
func IssueNumberFromBody(body string) (int, bool) {
	m := closesPattern.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// AutoMerge implements the auto-merge service: merge every open PR
// carrying soba's lgtm label whose mergeable_state is clean, then
// close the issue it references with the merged label.
type AutoMerge struct {
	Client ghclient.Client
	Log    logging.Logger
}

// NewAutoMerge builds an AutoMerge bound to client.
func NewAutoMerge(client ghclient.Client, log logging.Logger) *AutoMerge {
	if log == nil {
		log = logging.Nop{}
	}
	return &AutoMerge{Client: client, Log: log}
}

// Execute runs one auto-merge pass and returns how many PRs were merged.
func (a *AutoMerge) Execute(ctx context.Context, repo string) (int, error) {
	prs, err := a.Client.SearchPullRequestsByLabel(ctx, repo, lgtmLabel)
	if err != nil {
		return 0, fmt.Errorf("scheduler: search lgtm pull requests: %w", err)
	}

	merged := 0
	for _, summary := range prs {
		pr, err := a.Client.GetPullRequest(ctx, repo, summary.Number)
		if err != nil {
			a.Log.Warnw("auto-merge: fetch pull request failed", "pr", summary.Number, "error", err)
			continue
		}
		if pr.MergeableState != "clean" {
			a.Log.Infow("auto-merge: pull request not mergeable yet", "pr", pr.Number, "mergeable_state", pr.MergeableState)
			continue
		}
		if err := a.Client.MergePullRequest(ctx, repo, pr.Number, "squash"); err != nil {
			a.Log.Warnw("auto-merge: merge failed", "pr", pr.Number, "error", err)
			continue
		}
		merged++
		issueNumber, ok := IssueNumberFromBody(pr.Body)
		if !ok {
			a.Log.Warnw("auto-merge: merged pull request has no closing reference", "pr", pr.Number)
			continue
		}
		if err := a.Client.CloseIssueWithLabel(ctx, repo, issueNumber, mergedLabel); err != nil {
			a.Log.Warnw("auto-merge: close issue after merge failed", "pr", pr.Number, "issue", issueNumber, "error", err)
			continue
		}
		a.Log.Infow("auto-merge: merged pull request and closed issue", "pr", pr.Number, "issue", issueNumber)
	}
	return merged, nil
}
