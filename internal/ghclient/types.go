package ghclient

import (
	"errors"
	"time"

	"github.com/douhashi/soba/internal/phase"
)

// Issue is the subset of a GitHub issue the core state machine observes.
type Issue struct {
	Number    int
	Title     string
	State     string
	Labels    []string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SobaLabels returns the issue's soba:* labels with the namespace stripped.
func (i Issue) SobaLabels() []phase.Label {
	var out []phase.Label
	for _, name := range i.Labels {
		if l, ok := phase.Unqualify(name); ok {
			out = append(out, l)
		}
	}
	return out
}

// HasLabel reports whether the issue carries the bare label l.
func (i Issue) HasLabel(l phase.Label) bool {
	for _, have := range i.SobaLabels() {
		if have == l {
			return true
		}
	}
	return false
}

// PullRequest is the subset of a GitHub PR the auto-merge service observes.
type PullRequest struct {
	Number         int
	Body           string
	Labels         []string
	MergeableState string
}

// Sentinel error kinds the scheduler loop and issue processor branch on.
// These wrap whatever transport-level error the concrete client returns;
// callers should use errors.Is against these values.
var (
	ErrNetwork        = errors.New("ghclient: network error")
	ErrRateLimited    = errors.New("ghclient: rate limit exceeded")
	ErrAuthentication = errors.New("ghclient: authentication error")
	ErrMergeConflict  = errors.New("ghclient: merge conflict")
	ErrLabelCollision = errors.New("ghclient: label update collision")
)
