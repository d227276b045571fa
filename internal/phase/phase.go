// Package phase implements the pure label/phase state machine: which
// phase (if any) a label set entails, and the deterministic table of
// label transitions that drive an issue from todo through merged.
package phase

// Phase is the unit of work the workflow executor runs commands for.
type Phase string

const (
	Plan              Phase = "plan"
	Implement         Phase = "implement"
	Review            Phase = "review"
	Revise            Phase = "revise"
	QueuedToPlanning  Phase = "queued_to_planning"
	None              Phase = ""
)

// Label is a bare soba:* label name, without the namespace prefix.
type Label string

const (
	LabelTodo             Label = "todo"
	LabelQueued           Label = "queued"
	LabelPlanning         Label = "planning"
	LabelReady            Label = "ready"
	LabelDoing            Label = "doing"
	LabelReviewRequested  Label = "review-requested"
	LabelReviewing        Label = "reviewing"
	LabelRequiresChanges  Label = "requires-changes"
	LabelRevising         Label = "revising"
	LabelDone             Label = "done"
	LabelMerged           Label = "merged"
)

// Prefix is the label namespace every phase label lives under.
const Prefix = "soba:"

// activeLabels are in-flight: a phase command is currently executing.
var activeLabels = map[Label]bool{
	LabelPlanning:  true,
	LabelDoing:     true,
	LabelReviewing: true,
	LabelRevising:  true,
}

// intermediateLabels are human-facing waiting states between phases.
var intermediateLabels = map[Label]bool{
	LabelReviewRequested: true,
	LabelRequiresChanges: true,
}

// terminalLabels mark an issue as finished; they never re-enter the pipeline.
var terminalLabels = map[Label]bool{
	LabelDone:   true,
	LabelMerged: true,
}

// IsActive reports whether l denotes work currently in flight.
func IsActive(l Label) bool { return activeLabels[l] }

// IsIntermediate reports whether l denotes a human-facing waiting state.
func IsIntermediate(l Label) bool { return intermediateLabels[l] }

// IsTerminal reports whether l denotes a finished issue.
func IsTerminal(l Label) bool { return terminalLabels[l] }

// entryPhase maps the labels that admit a new phase to the phase they enter.
var entryPhase = map[Label]Phase{
	LabelTodo:             Plan,
	LabelQueued:           QueuedToPlanning,
	LabelReady:            Implement,
	LabelReviewRequested:  Review,
	LabelRequiresChanges:  Revise,
}

// nextLabelFor maps a phase to the label applied once its command starts.
var nextLabelFor = map[Phase]Label{
	Plan:             LabelPlanning,
	QueuedToPlanning: LabelPlanning,
	Implement:        LabelDoing,
	Review:           LabelReviewing,
	Revise:           LabelRevising,
}

// currentLabelFor is the inverse of entryPhase: the label a phase was
// entered from, used to compute the label-update pair in the processor.
var currentLabelFor = map[Phase]Label{
	Plan:             LabelTodo,
	QueuedToPlanning: LabelQueued,
	Implement:        LabelReady,
	Review:           LabelReviewRequested,
	Revise:           LabelRequiresChanges,
}

// transitions is the complete, total ordering of allowed label edges.
var transitions = map[Label][]Label{
	LabelTodo:             {LabelQueued},
	LabelQueued:           {LabelPlanning},
	LabelPlanning:         {LabelReady},
	LabelReady:            {LabelDoing},
	LabelDoing:            {LabelReviewRequested},
	LabelReviewRequested:  {LabelReviewing},
	LabelReviewing:        {LabelDone, LabelRequiresChanges},
	LabelRequiresChanges:  {LabelRevising},
	LabelRevising:         {LabelReviewRequested},
	LabelDone:             {LabelMerged},
}

// DeterminePhase returns the phase a label set entails, or None if no
// phase applies: either the set carries no soba:* label at all, it
// carries an active label (work already in flight), or it carries a
// terminal label. Non-soba:* labels never affect the result.
func DeterminePhase(labels []Label) Phase {
	var entry Label
	found := false
	for _, l := range labels {
		if IsActive(l) || IsTerminal(l) {
			return None
		}
		if p, ok := entryPhase[l]; ok {
			if found {
				// Two entry labels at once violates I3; treat as no phase
				// rather than guessing which one is authoritative.
				return None
			}
			entry = l
			found = true
			_ = p
		}
	}
	if !found {
		return None
	}
	return entryPhase[entry]
}

// NextLabel returns the label applied once p's command begins executing.
func NextLabel(p Phase) Label { return nextLabelFor[p] }

// CurrentLabelForPhase returns the label a phase was entered from.
func CurrentLabelForPhase(p Phase) Label { return currentLabelFor[p] }

// ValidateTransition reports whether the edge from→to is one of the
// state machine's allowed transitions.
func ValidateTransition(from, to Label) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Qualify prefixes a bare label with the soba: namespace, e.g. for
// GitHub API calls that operate on the full label name.
func Qualify(l Label) string { return Prefix + string(l) }

// Unqualify strips the soba: namespace, returning ok=false for labels
// outside the namespace.
func Unqualify(name string) (Label, bool) {
	if len(name) <= len(Prefix) || name[:len(Prefix)] != Prefix {
		return "", false
	}
	return Label(name[len(Prefix):]), true
}
