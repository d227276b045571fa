package admission

import (
	"context"
	"fmt"

	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/phase"
)

// IntegrityChecker detects and repairs I1 violations (more than one
// issue simultaneously active) that slip past the queue's own
// double-check, e.g. from manual label edits or a crash mid-transition.
type IntegrityChecker struct {
	Client ghclient.Client
	Log    logging.Logger
	DryRun bool
}

// NewIntegrityChecker builds a checker bound to client.
func NewIntegrityChecker(client ghclient.Client, log logging.Logger, dryRun bool) *IntegrityChecker {
	if log == nil {
		log = logging.Nop{}
	}
	return &IntegrityChecker{Client: client, Log: log, DryRun: dryRun}
}

// Violation describes one issue that was (or, in dry-run mode, would
// be) reverted by a check-and-fix pass.
type Violation struct {
	Issue    ghclient.Issue
	Label    phase.Label
	RevertTo phase.Label
}

// revertTarget returns the label a violator is rolled back to: active
// labels go back to todo, intermediate labels go back to ready. Which
// issue survives is chosen by survivor (newest by created_at, the
// heuristic named in the core's own open question); every other
// blocker is reverted.
func revertTarget(l phase.Label) phase.Label {
	if phase.IsIntermediate(l) {
		return phase.LabelReady
	}
	return phase.LabelTodo
}

// active collects every issue currently holding a blocking label,
// alongside which label is blocking.
func active(issues []ghclient.Issue) []Violation {
	var out []Violation
	for _, issue := range issues {
		if l, ok := blockingLabel(issue); ok {
			out = append(out, Violation{Issue: issue, Label: l})
		}
	}
	return out
}

// survivor picks which active issue keeps its state: newest by
// created_at, ties broken by the higher issue number.
func survivor(violators []Violation) int {
	best := 0
	for i := 1; i < len(violators); i++ {
		a, b := violators[i], violators[best]
		if a.Issue.CreatedAt.After(b.Issue.CreatedAt) ||
			(a.Issue.CreatedAt.Equal(b.Issue.CreatedAt) && a.Issue.Number > b.Issue.Number) {
			best = i
		}
	}
	return best
}

// CheckAndFix runs one integrity pass over issues. It returns the
// violations it found (and, unless DryRun, has already reverted every
// violator but the survivor's label on GitHub).
func (c *IntegrityChecker) CheckAndFix(ctx context.Context, repo string, issues []ghclient.Issue) ([]Violation, error) {
	violators := active(issues)
	if len(violators) <= 1 {
		return nil, nil
	}
	keep := survivor(violators)

	var reverted []Violation
	for i, v := range violators {
		if i == keep {
			continue
		}
		v.RevertTo = revertTarget(v.Label)
		reverted = append(reverted, v)
		if c.DryRun {
			c.Log.Infow("integrity violation (dry-run)", "issue", v.Issue.Number, "label", v.Label, "would_revert_to", v.RevertTo)
			continue
		}
		if err := c.Client.UpdateIssueLabels(ctx, repo, v.Issue.Number, phase.Qualify(v.Label), phase.Qualify(v.RevertTo)); err != nil {
			return reverted, fmt.Errorf("admission: revert issue #%d: %w", v.Issue.Number, err)
		}
		c.Log.Warnw("reverted conflicting active issue", "issue", v.Issue.Number, "from", v.Label, "to", v.RevertTo)
	}
	return reverted, nil
}
