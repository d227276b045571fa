// Package admission implements the single-active-issue admission
// control described by the core: the blocking checker, the queueing
// service, and the workflow integrity checker.
package admission

import (
	"fmt"

	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/phase"
)

// excluded are the soba:* labels that never block a new admission:
// todo is a candidate, done/merged are terminal. Everything else
// (active or intermediate) blocks, even labels the core doesn't name
// explicitly — detection is dynamic, per the label taxonomy.
var excluded = map[phase.Label]bool{
	phase.LabelTodo:   true,
	phase.LabelDone:   true,
	phase.LabelMerged: true,
}

// blockingLabel returns the first soba:* label on the issue that isn't
// in the excluded set, or "" if none.
func blockingLabel(issue ghclient.Issue) (phase.Label, bool) {
	for _, l := range issue.SobaLabels() {
		if !excluded[l] {
			return l, true
		}
	}
	return "", false
}

// Blocking reports whether any issue other than except carries a
// blocking soba:* label.
func Blocking(issues []ghclient.Issue, except int) bool {
	for _, issue := range issues {
		if issue.Number == except {
			continue
		}
		if _, ok := blockingLabel(issue); ok {
			return true
		}
	}
	return false
}

// BlockingIssues returns the subset of issues currently blocking new
// admission, excluding except.
func BlockingIssues(issues []ghclient.Issue, except int) []ghclient.Issue {
	var out []ghclient.Issue
	for _, issue := range issues {
		if issue.Number == except {
			continue
		}
		if _, ok := blockingLabel(issue); ok {
			out = append(out, issue)
		}
	}
	return out
}

// BlockingReason returns a stable human-readable description of the
// first blocker, or "" if nothing blocks.
func BlockingReason(issues []ghclient.Issue, except int) string {
	blockers := BlockingIssues(issues, except)
	if len(blockers) == 0 {
		return ""
	}
	label, _ := blockingLabel(blockers[0])
	return fmt.Sprintf("Issue #%d blocks with soba:%s; skipping new workflow start", blockers[0].Number, label)
}
