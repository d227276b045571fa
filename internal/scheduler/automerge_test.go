package scheduler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/ghclient/ghclienttest"
	"github.com/douhashi/soba/internal/scheduler"
)

func TestIssueNumberFromBody_FindsClosingKeyword(t *testing.T) {
	n, ok := scheduler.IssueNumberFromBody("Implements the feature.\n\ncloses #55")
	require.True(t, ok)
	assert.Equal(t, 55, n)
}

func TestIssueNumberFromBody_AcceptsFixesAndResolves(t *testing.T) {
	n, ok := scheduler.IssueNumberFromBody("Fixes #7")
	require.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = scheduler.IssueNumberFromBody("This resolves #12.")
	require.True(t, ok)
	assert.Equal(t, 12, n)
}

func TestIssueNumberFromBody_NoneFound(t *testing.T) {
	_, ok := scheduler.IssueNumberFromBody("Just a description, no keyword.")
	assert.False(t, ok)
}

// S4: a clean, lgtm-labeled PR referencing "closes #55" is merged and
// its issue closed with the merged label.
func TestAutoMerge_MergesCleanLGTMPullRequestAndClosesIssue(t *testing.T) {
	fake := ghclienttest.New()
	fake.PRs = []ghclient.PullRequest{
		{Number: 99, Body: "closes #55", Labels: []string{"lgtm"}, MergeableState: "clean"},
	}
	am := scheduler.NewAutoMerge(fake, nil)

	merged, err := am.Execute(context.Background(), "o/r")
	require.NoError(t, err)
	assert.Equal(t, 1, merged)
	require.Len(t, fake.Merged, 1)
	assert.Equal(t, 99, fake.Merged[0])
	require.Len(t, fake.ClosedWith, 1)
	assert.Equal(t, 55, fake.ClosedWith[0].Number)
	assert.Equal(t, "merged", fake.ClosedWith[0].Label)
}

func TestAutoMerge_SkipsPullRequestNotYetMergeable(t *testing.T) {
	fake := ghclienttest.New()
	fake.PRs = []ghclient.PullRequest{
		{Number: 10, Body: "closes #1", Labels: []string{"lgtm"}, MergeableState: "dirty"},
	}
	am := scheduler.NewAutoMerge(fake, nil)

	merged, err := am.Execute(context.Background(), "o/r")
	require.NoError(t, err)
	assert.Equal(t, 0, merged)
	assert.Empty(t, fake.Merged)
}

func TestAutoMerge_NoLGTMPullRequestsMergesNothing(t *testing.T) {
	fake := ghclienttest.New()
	am := scheduler.NewAutoMerge(fake, nil)

	merged, err := am.Execute(context.Background(), "o/r")
	require.NoError(t, err)
	assert.Equal(t, 0, merged)
}
