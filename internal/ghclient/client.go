// Package ghclient is the GitHub REST collaborator: issue listing,
// label updates, and the pull-request half of auto-merge. The core
// scheduler only ever talks to the Client interface; RealClient wraps
// google/go-github behind a gobreaker circuit breaker so a flapping API
// degrades into fast failures instead of hammering a downed endpoint.
package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
)

// Client is the capability interface the scheduler, queueing service,
// and issue processor consume. A fake implementation backs all tests.
type Client interface {
	Issues(ctx context.Context, repo string, state string) ([]Issue, error)
	Issue(ctx context.Context, repo string, number int) (Issue, error)
	UpdateIssueLabels(ctx context.Context, repo string, number int, from, to string) error
	FetchClosedIssues(ctx context.Context, repo string) ([]Issue, error)
	SearchPullRequestsByLabel(ctx context.Context, repo string, label string) ([]PullRequest, error)
	GetPullRequest(ctx context.Context, repo string, number int) (PullRequest, error)
	MergePullRequest(ctx context.Context, repo string, number int, method string) error
	CloseIssueWithLabel(ctx context.Context, repo string, number int, label string) error
}

// RealClient is the production Client, built on google/go-github.
type RealClient struct {
	gh      *github.Client
	breaker *gobreaker.CircuitBreaker
}

// Option configures NewRealClient.
type Option func(*RealClient)

// WithHTTPClient overrides the http.Client go-github uses. The override
// is kept only when NewRealClient is given an empty token; with a
// non-empty token NewRealClient replaces it with an oauth2 client over
// the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RealClient) { c.gh = github.NewClient(hc) }
}

// NewRealClient builds a Client authenticated with a static token, as
// produced by either config's env token or the `gh auth token` passthrough.
func NewRealClient(token string, opts ...Option) *RealClient {
	c := &RealClient{}
	for _, opt := range opts {
		opt(c)
	}
	if c.gh == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		c.gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		c.gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "github-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("ghclient: malformed repository %q, want owner/name", repo)
	}
	return parts[0], parts[1], nil
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	var are *github.AbuseRateLimitError
	if errors.As(err, &are) {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		case http.StatusNotFound, http.StatusConflict:
			return fmt.Errorf("%w: %v", ErrLabelCollision, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// through runs fn behind the circuit breaker, classifying the returned
// error into one of this package's sentinel kinds.
func through[T any](c *RealClient, fn func() (T, error)) (T, error) {
	var zero T
	result, err := c.breaker.Execute(func() (interface{}, error) {
		v, innerErr := fn()
		if innerErr != nil {
			return nil, innerErr
		}
		return v, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: circuit open: %v", ErrRateLimited, err)
		}
		return zero, classifyError(err)
	}
	return result.(T), nil
}

func toIssue(gi *github.Issue) Issue {
	labels := make([]string, 0, len(gi.Labels))
	for _, l := range gi.Labels {
		labels = append(labels, l.GetName())
	}
	return Issue{
		Number:    gi.GetNumber(),
		Title:     gi.GetTitle(),
		State:     gi.GetState(),
		Labels:    labels,
		Body:      gi.GetBody(),
		CreatedAt: gi.GetCreatedAt().Time,
		UpdatedAt: gi.GetUpdatedAt().Time,
	}
}

func (c *RealClient) Issues(ctx context.Context, repo string, state string) ([]Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	return through(c, func() ([]Issue, error) {
		var all []Issue
		opt := &github.IssueListByRepoOptions{
			State:       state,
			ListOptions: github.ListOptions{PerPage: 100},
		}
		for {
			issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, name, opt)
			if err != nil {
				return nil, err
			}
			for _, gi := range issues {
				if gi.IsPullRequest() {
					continue
				}
				all = append(all, toIssue(gi))
			}
			if resp.NextPage == 0 {
				break
			}
			opt.Page = resp.NextPage
		}
		return all, nil
	})
}

func (c *RealClient) Issue(ctx context.Context, repo string, number int) (Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return Issue{}, err
	}
	return through(c, func() (Issue, error) {
		gi, _, err := c.gh.Issues.Get(ctx, owner, name, number)
		if err != nil {
			return Issue{}, err
		}
		return toIssue(gi), nil
	})
}

func (c *RealClient) UpdateIssueLabels(ctx context.Context, repo string, number int, from, to string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	_, err = through(c, func() (struct{}, error) {
		if from != "" {
			if _, err := c.gh.Issues.RemoveLabelForIssue(ctx, owner, name, number, from); err != nil {
				return struct{}{}, err
			}
		}
		if to != "" {
			if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, name, number, []string{to}); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (c *RealClient) FetchClosedIssues(ctx context.Context, repo string) ([]Issue, error) {
	return c.Issues(ctx, repo, "closed")
}

func (c *RealClient) SearchPullRequestsByLabel(ctx context.Context, repo string, label string) ([]PullRequest, error) {
	return through(c, func() ([]PullRequest, error) {
		query := fmt.Sprintf("repo:%s is:pr is:open label:%q", repo, label)
		result, _, err := c.gh.Search.Issues(ctx, query, &github.SearchOptions{
			ListOptions: github.ListOptions{PerPage: 100},
		})
		if err != nil {
			return nil, err
		}
		out := make([]PullRequest, 0, len(result.Issues))
		for _, gi := range result.Issues {
			labels := make([]string, 0, len(gi.Labels))
			for _, l := range gi.Labels {
				labels = append(labels, l.GetName())
			}
			out = append(out, PullRequest{Number: gi.GetNumber(), Body: gi.GetBody(), Labels: labels})
		}
		return out, nil
	})
}

func (c *RealClient) GetPullRequest(ctx context.Context, repo string, number int) (PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return PullRequest{}, err
	}
	return through(c, func() (PullRequest, error) {
		pr, _, err := c.gh.PullRequests.Get(ctx, owner, name, number)
		if err != nil {
			return PullRequest{}, err
		}
		labels := make([]string, 0, len(pr.Labels))
		for _, l := range pr.Labels {
			labels = append(labels, l.GetName())
		}
		return PullRequest{
			Number:         pr.GetNumber(),
			Body:           pr.GetBody(),
			Labels:         labels,
			MergeableState: pr.GetMergeableState(),
		}, nil
	})
}

func (c *RealClient) MergePullRequest(ctx context.Context, repo string, number int, method string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	_, err = through(c, func() (struct{}, error) {
		_, _, err := c.gh.PullRequests.Merge(ctx, owner, name, number, "", &github.PullRequestOptions{
			MergeMethod: method,
		})
		if err != nil && isMergeConflict(err) {
			return struct{}{}, fmt.Errorf("%w: %v", ErrMergeConflict, err)
		}
		return struct{}{}, err
	})
	return err
}

func isMergeConflict(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == http.StatusMethodNotAllowed || ghErr.Response.StatusCode == http.StatusConflict
	}
	return false
}

func (c *RealClient) CloseIssueWithLabel(ctx context.Context, repo string, number int, label string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	_, err = through(c, func() (struct{}, error) {
		if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, name, number, []string{label}); err != nil {
			return struct{}{}, err
		}
		state := "closed"
		_, _, err := c.gh.Issues.Edit(ctx, owner, name, number, &github.IssueRequest{State: &state})
		return struct{}{}, err
	})
	return err
}
