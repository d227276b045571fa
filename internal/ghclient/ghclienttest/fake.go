// Package ghclienttest provides an in-memory ghclient.Client double for
// exercising the admission, workflow, and scheduler packages without a
// network. It is imported only from _test.go files.
package ghclienttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/douhashi/soba/internal/ghclient"
)

// Fake is a recording, in-memory ghclient.Client.
type Fake struct {
	mu sync.Mutex

	Issues_ []ghclient.Issue
	Closed  []ghclient.Issue
	PRs     []ghclient.PullRequest

	LabelUpdates []LabelUpdate
	Merged       []int
	ClosedWith   []ClosedWith

	// IssuesErr, if set, is returned by every call to Issues.
	IssuesErr error
	// OnIssuesCall, if set, runs before each Issues() call returns,
	// letting tests mutate Issues_ mid-sequence to model a race.
	OnIssuesCall func(call int)
	issuesCalls  int
}

// LabelUpdate records one UpdateIssueLabels call.
type LabelUpdate struct {
	Number   int
	From, To string
}

// ClosedWith records one CloseIssueWithLabel call.
type ClosedWith struct {
	Number int
	Label  string
}

func New(issues ...ghclient.Issue) *Fake {
	return &Fake{Issues_: issues}
}

func (f *Fake) Issues(ctx context.Context, repo string, state string) ([]ghclient.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issuesCalls++
	if f.OnIssuesCall != nil {
		f.OnIssuesCall(f.issuesCalls)
	}
	if f.IssuesErr != nil {
		return nil, f.IssuesErr
	}
	if state == "closed" {
		out := make([]ghclient.Issue, len(f.Closed))
		copy(out, f.Closed)
		return out, nil
	}
	out := make([]ghclient.Issue, len(f.Issues_))
	copy(out, f.Issues_)
	return out, nil
}

func (f *Fake) Issue(ctx context.Context, repo string, number int) (ghclient.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, i := range f.Issues_ {
		if i.Number == number {
			return i, nil
		}
	}
	return ghclient.Issue{}, fmt.Errorf("issue #%d not found", number)
}

func (f *Fake) UpdateIssueLabels(ctx context.Context, repo string, number int, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LabelUpdates = append(f.LabelUpdates, LabelUpdate{Number: number, From: from, To: to})
	for i, issue := range f.Issues_ {
		if issue.Number != number {
			continue
		}
		var labels []string
		for _, l := range issue.Labels {
			if l != from {
				labels = append(labels, l)
			}
		}
		if to != "" {
			labels = append(labels, to)
		}
		f.Issues_[i].Labels = labels
	}
	return nil
}

func (f *Fake) FetchClosedIssues(ctx context.Context, repo string) ([]ghclient.Issue, error) {
	return f.Issues(ctx, repo, "closed")
}

func (f *Fake) SearchPullRequestsByLabel(ctx context.Context, repo string, label string) ([]ghclient.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ghclient.PullRequest
	for _, pr := range f.PRs {
		for _, l := range pr.Labels {
			if l == label {
				out = append(out, pr)
				break
			}
		}
	}
	return out, nil
}

func (f *Fake) GetPullRequest(ctx context.Context, repo string, number int) (ghclient.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pr := range f.PRs {
		if pr.Number == number {
			return pr, nil
		}
	}
	return ghclient.PullRequest{}, fmt.Errorf("pr #%d not found", number)
}

func (f *Fake) MergePullRequest(ctx context.Context, repo string, number int, method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Merged = append(f.Merged, number)
	return nil
}

func (f *Fake) CloseIssueWithLabel(ctx context.Context, repo string, number int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClosedWith = append(f.ClosedWith, ClosedWith{Number: number, Label: label})
	return nil
}
