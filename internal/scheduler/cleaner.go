package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/douhashi/soba/internal/clockutil"
	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/tmuxmgr"
)

// defaultCleanupInterval matches the config default
// (workflow.closed_issue_cleanup_interval) when none is configured.
const defaultCleanupInterval = 300 * time.Second

// ClosedIssueCleaner periodically reaps tmux windows for issues GitHub
// reports closed. Every step is best-effort: a failed window kill is
// logged and skipped; a failed fetch or window listing is logged and
// returned, and the scheduler loop logs it without stopping.
type ClosedIssueCleaner struct {
	Client ghclient.Client
	Tmux   *tmuxmgr.Manager
	Clock  clockutil.Clock
	Log    logging.Logger

	Interval time.Duration

	mu      sync.Mutex
	lastRun time.Time
}

// NewClosedIssueCleaner builds a cleaner that fires at most once per interval.
func NewClosedIssueCleaner(client ghclient.Client, tmux *tmuxmgr.Manager, clock clockutil.Clock, log logging.Logger, interval time.Duration) *ClosedIssueCleaner {
	if log == nil {
		log = logging.Nop{}
	}
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &ClosedIssueCleaner{Client: client, Tmux: tmux, Clock: clock, Log: log, Interval: interval}
}

// ShouldClean reports whether enough time has elapsed since the last
// run (or no run has happened yet) to justify another pass.
func (c *ClosedIssueCleaner) ShouldClean() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun.IsZero() || c.Clock.Now().Sub(c.lastRun) >= c.Interval
}

// windowIssueNumber extracts N from an "issue-N" window name.
func windowIssueNumber(window string) (int, bool) {
	const prefix = "issue-"
	if !strings.HasPrefix(window, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(window[len(prefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Clean fetches closed issues, kills the window for each one still
// present in session, and records the run timestamp regardless of
// per-issue outcome.
func (c *ClosedIssueCleaner) Clean(ctx context.Context, repo, session string) error {
	defer func() {
		c.mu.Lock()
		c.lastRun = c.Clock.Now()
		c.mu.Unlock()
	}()

	closed, err := c.Client.FetchClosedIssues(ctx, repo)
	if err != nil {
		c.Log.Warnw("closed-issue cleanup: fetch closed issues failed", "error", err)
		return fmt.Errorf("scheduler: fetch closed issues: %w", err)
	}
	windows, err := c.Tmux.ListIssueWindows(ctx, session)
	if err != nil {
		c.Log.Warnw("closed-issue cleanup: list windows failed", "error", err)
		return fmt.Errorf("scheduler: list issue windows: %w", err)
	}

	open := make(map[int]bool, len(windows))
	for _, w := range windows {
		if n, ok := windowIssueNumber(w); ok {
			open[n] = true
		}
	}

	for _, issue := range closed {
		if !open[issue.Number] {
			continue
		}
		if err := c.Tmux.KillWindow(ctx, session, issue.Number); err != nil {
			c.Log.Warnw("closed-issue cleanup: kill window failed", "issue", issue.Number, "error", err)
			continue
		}
		c.Log.Infow("closed-issue cleanup: killed window for closed issue", "issue", issue.Number)
	}
	return nil
}
