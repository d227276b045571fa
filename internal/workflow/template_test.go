package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/douhashi/soba/internal/workflow"
)

func TestSubstituteIssueNumber(t *testing.T) {
	assert.Equal(t, "plan 42", workflow.SubstituteIssueNumber("plan {{issue-number}}", 42))
	assert.Equal(t, "no token here", workflow.SubstituteIssueNumber("no token here", 42))
	assert.Equal(t, "7 and 7", workflow.SubstituteIssueNumber("{{issue-number}} and {{issue-number}}", 7))
}
