package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/ghclient/ghclienttest"
	"github.com/douhashi/soba/internal/phase"
	"github.com/douhashi/soba/internal/workflow"
)

func TestProcess_SkipsWhenNoPhaseApplies(t *testing.T) {
	fake := ghclienttest.New()
	proc := workflow.NewProcessor(fake, nil, nil)

	result := proc.Process(context.Background(), "o/r", ghclient.Issue{Number: 1, Labels: []string{"soba:planning"}}, config.Default())
	assert.True(t, result.Skipped)
	assert.Empty(t, fake.LabelUpdates)
}

// S2: queued -> planning transitions the label and dispatches the command.
func TestProcess_QueuedIssueTransitionsAndDispatches(t *testing.T) {
	fake := ghclienttest.New()
	ex := workflow.New(&fakeProcess{output: "done", exit: 0}, nil, nil, nil, nil, "", 0)
	proc := workflow.NewProcessor(fake, ex, nil)

	cfg := config.Default()
	cfg.Phase.Plan = config.PhaseEntry{Command: "agent", Parameter: "plan {{issue-number}}"}

	result := proc.Process(context.Background(), "o/r", ghclient.Issue{Number: 10, Labels: []string{"soba:queued"}}, cfg)
	require.True(t, result.Success)
	assert.Equal(t, phase.QueuedToPlanning, result.Phase)
	require.Len(t, fake.LabelUpdates, 1)
	assert.Equal(t, "soba:queued", fake.LabelUpdates[0].From)
	assert.Equal(t, "soba:planning", fake.LabelUpdates[0].To)
}

func TestProcess_NoConfiguredCommandUpdatesLabelOnly(t *testing.T) {
	fake := ghclienttest.New()
	proc := workflow.NewProcessor(fake, nil, nil)

	result := proc.Process(context.Background(), "o/r", ghclient.Issue{Number: 1, Labels: []string{"soba:ready"}}, config.Default())
	assert.True(t, result.Success)
	assert.True(t, result.WorkflowSkipped)
	require.Len(t, fake.LabelUpdates, 1)
}

func TestProcess_LabelUpdateFailureSurfacesError(t *testing.T) {
	fake := ghclienttest.New()
	fake.IssuesErr = nil
	proc := workflow.NewProcessor(&erroringClient{Fake: fake}, nil, nil)

	result := proc.Process(context.Background(), "o/r", ghclient.Issue{Number: 1, Labels: []string{"soba:todo"}}, config.Default())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

type erroringClient struct {
	*ghclienttest.Fake
}

func (e *erroringClient) UpdateIssueLabels(ctx context.Context, repo string, number int, from, to string) error {
	return assertErr
}

type stubErr string

func (s stubErr) Error() string { return string(s) }

var assertErr = stubErr("label update failed")
