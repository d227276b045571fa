package admission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/admission"
	"github.com/douhashi/soba/internal/ghclient/ghclienttest"
)

// S1: a blocker is present, nothing is promoted, zero label updates.
func TestQueueNextIssue_NoopWhenBlocked(t *testing.T) {
	fake := ghclienttest.New(issue(10, "soba:todo"), issue(20, "soba:todo"), issue(30, "soba:planning"))
	q := admission.NewQueue(fake, nil)

	_, ok, err := q.QueueNextIssue(context.Background(), "o/r")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, fake.LabelUpdates)
}

// S2: no blocker, lowest-numbered todo is promoted.
func TestQueueNextIssue_PromotesMinimumNumberedTodo(t *testing.T) {
	fake := ghclienttest.New(issue(20, "soba:todo"), issue(10, "soba:todo"))
	q := admission.NewQueue(fake, nil)

	got, ok, err := q.QueueNextIssue(context.Background(), "o/r")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, got.Number)
	require.Len(t, fake.LabelUpdates, 1)
	assert.Equal(t, ghclienttest.LabelUpdate{Number: 10, From: "soba:todo", To: "soba:queued"}, fake.LabelUpdates[0])
}

func TestQueueNextIssue_NoopWhenNoCandidates(t *testing.T) {
	fake := ghclienttest.New(issue(10, "soba:done"))
	q := admission.NewQueue(fake, nil)

	_, ok, err := q.QueueNextIssue(context.Background(), "o/r")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Property 3: the race-recheck prevents promotion when a concurrent
// admission becomes visible between the first fetch and the update.
func TestQueueNextIssue_RaceRecheckAbortsOnConcurrentAdmission(t *testing.T) {
	fake := ghclienttest.New(issue(10, "soba:todo"))
	calls := 0
	fake.OnIssuesCall = func(call int) {
		calls++
		if call == 2 {
			fake.Issues_ = append(fake.Issues_, issue(5, "soba:planning"))
		}
	}
	q := admission.NewQueue(fake, nil)

	_, ok, err := q.QueueNextIssue(context.Background(), "o/r")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, fake.LabelUpdates)
	assert.Equal(t, 2, calls)
}

func TestQueueNextIssue_PropagatesFetchError(t *testing.T) {
	fake := ghclienttest.New()
	fake.IssuesErr = assertErr
	q := admission.NewQueue(fake, nil)

	_, ok, err := q.QueueNextIssue(context.Background(), "o/r")
	assert.False(t, ok)
	assert.Error(t, err)
}

var assertErr = ghErr("boom")

type ghErr string

func (e ghErr) Error() string { return string(e) }
