package workflow

import (
	"strconv"
	"strings"
)

// issueNumberToken is the literal placeholder a phase's parameter may
// contain; it is substituted with the decimal issue number before the
// command is assembled into an argv vector. The substitution itself does
// no escaping: direct mode runs the vector without a shell, and tmux
// mode quotes each argument in shellLine.
const issueNumberToken = "{{issue-number}}"

// SubstituteIssueNumber replaces every occurrence of the issue-number
// token in s with n, rendered in decimal.
func SubstituteIssueNumber(s string, n int) string {
	return strings.ReplaceAll(s, issueNumberToken, strconv.Itoa(n))
}
