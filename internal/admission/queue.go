package admission

import (
	"context"
	"fmt"

	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/phase"
)

// Queue promotes the single lowest-numbered todo issue to queued each
// tick, guarded by a double-check against concurrent admission within
// this daemon. Cross-daemon races are left to the integrity checker.
type Queue struct {
	Client ghclient.Client
	Log    logging.Logger
}

// NewQueue builds a Queue bound to client, logging through log.
func NewQueue(client ghclient.Client, log logging.Logger) *Queue {
	if log == nil {
		log = logging.Nop{}
	}
	return &Queue{Client: client, Log: log}
}

// candidates returns the open issues carrying exactly soba:todo and no
// other soba:* label in the active/intermediate classes.
func candidates(issues []ghclient.Issue) []ghclient.Issue {
	var out []ghclient.Issue
	for _, issue := range issues {
		labels := issue.SobaLabels()
		hasTodo := false
		blocked := false
		for _, l := range labels {
			if l == phase.LabelTodo {
				hasTodo = true
				continue
			}
			if !excluded[l] {
				blocked = true
			}
		}
		if hasTodo && !blocked {
			out = append(out, issue)
		}
	}
	return out
}

// selectMinimum returns the candidate with the lowest issue number.
func selectMinimum(issues []ghclient.Issue) (ghclient.Issue, bool) {
	var best ghclient.Issue
	found := false
	for _, issue := range issues {
		if !found || issue.Number < best.Number {
			best = issue
			found = true
		}
	}
	return best, found
}

// QueueNextIssue runs the admission algorithm once: fetch, check
// blocking, select the minimum-numbered candidate, re-check after the
// fetch to close the race window, then promote todo->queued.
//
// Returns the promoted issue, or ok=false if nothing was promoted
// (nothing blocks but no candidates exist, something blocks, or the
// race-recheck caught a concurrent admission).
func (q *Queue) QueueNextIssue(ctx context.Context, repo string) (ghclient.Issue, bool, error) {
	issues, err := q.Client.Issues(ctx, repo, "open")
	if err != nil {
		return ghclient.Issue{}, false, fmt.Errorf("admission: fetch open issues: %w", err)
	}
	if Blocking(issues, 0) {
		q.Log.Infow("queue skipped", "reason", BlockingReason(issues, 0))
		return ghclient.Issue{}, false, nil
	}
	candidate, ok := selectMinimum(candidates(issues))
	if !ok {
		return ghclient.Issue{}, false, nil
	}

	recheck, err := q.Client.Issues(ctx, repo, "open")
	if err != nil {
		return ghclient.Issue{}, false, fmt.Errorf("admission: race-recheck fetch: %w", err)
	}
	if Blocking(recheck, candidate.Number) {
		q.Log.Warnw("race condition detected during admission", "reason", BlockingReason(recheck, candidate.Number), "candidate", candidate.Number)
		return ghclient.Issue{}, false, nil
	}

	if err := q.Client.UpdateIssueLabels(ctx, repo, candidate.Number, phase.Qualify(phase.LabelTodo), phase.Qualify(phase.LabelQueued)); err != nil {
		return ghclient.Issue{}, false, fmt.Errorf("admission: promote issue #%d: %w", candidate.Number, err)
	}
	q.Log.Infow("promoted issue to queued", "issue", candidate.Number)
	return candidate, true, nil
}
