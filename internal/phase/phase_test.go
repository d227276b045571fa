package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminePhase_EntryLabels(t *testing.T) {
	cases := []struct {
		name   string
		labels []Label
		want   Phase
	}{
		{"todo enters plan", []Label{LabelTodo}, Plan},
		{"queued enters queued_to_planning", []Label{LabelQueued}, QueuedToPlanning},
		{"ready enters implement", []Label{LabelReady}, Implement},
		{"review-requested enters review", []Label{LabelReviewRequested}, Review},
		{"requires-changes enters revise", []Label{LabelRequiresChanges}, Revise},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DeterminePhase(c.labels))
		})
	}
}

func TestDeterminePhase_ActiveLabelsYieldNone(t *testing.T) {
	for _, l := range []Label{LabelPlanning, LabelDoing, LabelReviewing, LabelRevising} {
		assert.Equal(t, None, DeterminePhase([]Label{l}), "active label %s should not admit a phase", l)
	}
}

func TestDeterminePhase_TerminalLabelsYieldNone(t *testing.T) {
	for _, l := range []Label{LabelDone, LabelMerged} {
		assert.Equal(t, None, DeterminePhase([]Label{l}))
	}
}

func TestDeterminePhase_IgnoresNonSobaLabels(t *testing.T) {
	assert.Equal(t, Plan, DeterminePhase([]Label{LabelTodo, "bug", "help wanted"}))
}

func TestDeterminePhase_NoEntryLabelYieldsNone(t *testing.T) {
	assert.Equal(t, None, DeterminePhase(nil))
	assert.Equal(t, None, DeterminePhase([]Label{"bug"}))
}

func TestTransitionSoundness(t *testing.T) {
	for _, p := range []Phase{Plan, QueuedToPlanning, Implement, Review, Revise} {
		from := CurrentLabelForPhase(p)
		to := NextLabel(p)
		assert.True(t, ValidateTransition(from, to), "phase %s: %s -> %s must be valid", p, from, to)
	}
}

func TestValidateTransition_RejectsUnknownEdges(t *testing.T) {
	assert.False(t, ValidateTransition(LabelTodo, LabelDoing))
	assert.False(t, ValidateTransition(LabelDone, LabelTodo))
}

func TestReviewingBranchesTwoWays(t *testing.T) {
	assert.True(t, ValidateTransition(LabelReviewing, LabelDone))
	assert.True(t, ValidateTransition(LabelReviewing, LabelRequiresChanges))
}

func TestQualifyUnqualifyRoundTrip(t *testing.T) {
	q := Qualify(LabelTodo)
	assert.Equal(t, "soba:todo", q)
	l, ok := Unqualify(q)
	assert.True(t, ok)
	assert.Equal(t, LabelTodo, l)
}

func TestUnqualifyRejectsForeignLabels(t *testing.T) {
	_, ok := Unqualify("bug")
	assert.False(t, ok)
}

func TestIsActiveIsIntermediateIsTerminal(t *testing.T) {
	assert.True(t, IsActive(LabelPlanning))
	assert.False(t, IsActive(LabelTodo))
	assert.True(t, IsIntermediate(LabelReviewRequested))
	assert.False(t, IsIntermediate(LabelDoing))
	assert.True(t, IsTerminal(LabelMerged))
	assert.False(t, IsTerminal(LabelQueued))
}
