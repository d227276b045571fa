package scheduler_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/admission"
	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/ghclient/ghclienttest"
	"github.com/douhashi/soba/internal/scheduler"
	"github.com/douhashi/soba/internal/workflow"
)

func newTestScheduler(t *testing.T, fake *ghclienttest.Fake) (*scheduler.Scheduler, *daemon.StatusFile) {
	t.Helper()
	status := &daemon.StatusFile{Path: filepath.Join(t.TempDir(), "status.json")}
	holder := config.NewHolder(config.Default())

	s := scheduler.New("o/r", "soba-o-r-1")
	s.Client = fake
	s.Config = holder
	s.Integrity = admission.NewIntegrityChecker(fake, nil, false)
	s.Queue = admission.NewQueue(fake, nil)
	s.Processor = workflow.NewProcessor(fake, nil, nil)
	s.AutoMerge = scheduler.NewAutoMerge(fake, nil)
	s.Status = status
	s.PIDFile = daemon.PIDFile{Path: filepath.Join(t.TempDir(), "soba.pid")}
	s.Sentinel = daemon.Sentinel{Path: filepath.Join(t.TempDir(), "stopping")}
	s.Clock = fixedClock{now: time.Now()}
	return s, status
}

// S2-shaped: #10 and #20 both todo, nothing blocking. Tick promotes #10
// to queued and, within the same tick, the processor observes queued
// and transitions it to planning.
func TestTick_PromotesAndProcessesWithinSameTick(t *testing.T) {
	fake := ghclienttest.New(
		ghclient.Issue{Number: 10, Labels: []string{"soba:todo"}},
		ghclient.Issue{Number: 20, Labels: []string{"soba:todo"}},
	)
	s, status := newTestScheduler(t, fake)

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, fake.LabelUpdates, 2)
	assert.Equal(t, "soba:todo", fake.LabelUpdates[0].From)
	assert.Equal(t, "soba:queued", fake.LabelUpdates[0].To)
	assert.Equal(t, 10, fake.LabelUpdates[0].Number)
	assert.Equal(t, "soba:queued", fake.LabelUpdates[1].From)
	assert.Equal(t, "soba:planning", fake.LabelUpdates[1].To)

	st, err := status.Read()
	require.NoError(t, err)
	require.NotNil(t, st.CurrentIssue)
	assert.Equal(t, 10, st.CurrentIssue.Number)
	assert.Equal(t, "queued_to_planning", st.CurrentIssue.Phase)
}

// S1-shaped: #30 is planning (active, blocks admission); #10/#20 stay todo.
func TestTick_BlockedRepoMakesNoLabelUpdates(t *testing.T) {
	fake := ghclienttest.New(
		ghclient.Issue{Number: 10, Labels: []string{"soba:todo"}},
		ghclient.Issue{Number: 20, Labels: []string{"soba:todo"}},
		ghclient.Issue{Number: 30, Labels: []string{"soba:planning"}},
	)
	s, _ := newTestScheduler(t, fake)

	require.NoError(t, s.Tick(context.Background()))
	assert.Empty(t, fake.LabelUpdates)
}

func TestTick_TerminalIssueRecordsLastProcessed(t *testing.T) {
	fake := ghclienttest.New(
		ghclient.Issue{Number: 5, Labels: []string{"soba:done"}},
	)
	s, status := newTestScheduler(t, fake)
	// #5 was the current issue when it entered its last phase; reaching a
	// terminal label moves it to last_processed.
	require.NoError(t, status.UpdateCurrentIssue(5, "review", time.Now()))

	require.NoError(t, s.Tick(context.Background()))
	st, err := status.Read()
	require.NoError(t, err)
	assert.Nil(t, st.CurrentIssue)
	require.NotNil(t, st.LastProcessed)
	assert.Equal(t, 5, st.LastProcessed.Number)
}

func TestRun_StopsWhenSentinelPresent(t *testing.T) {
	fake := ghclienttest.New()
	s, _ := newTestScheduler(t, fake)
	require.NoError(t, s.Sentinel.Create())

	var stopping atomic.Bool
	s.Stopping = &stopping

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after sentinel was present")
	}

	_, ok := s.PIDFile.Read()
	assert.False(t, ok)
}
