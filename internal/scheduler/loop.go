package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/douhashi/soba/internal/admission"
	"github.com/douhashi/soba/internal/clockutil"
	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/phase"
	"github.com/douhashi/soba/internal/tmuxmgr"
	"github.com/douhashi/soba/internal/workflow"
)

// Scheduler is the single-threaded main loop that ties the phase
// strategy, admission controller, issue processor, auto-merge service,
// and closed-issue cleaner together, per §4.10.
type Scheduler struct {
	Repo    string
	Session string

	Client    ghclient.Client
	Config    *config.Holder
	Integrity *admission.IntegrityChecker
	Queue     *admission.Queue
	Processor *workflow.Processor
	AutoMerge *AutoMerge
	Cleaner   *ClosedIssueCleaner
	Tmux      *tmuxmgr.Manager

	PIDFile  daemon.PIDFile
	Sentinel daemon.Sentinel
	Status   *daemon.StatusFile

	Clock   clockutil.Clock
	Sleeper clockutil.Sleeper
	Log     logging.Logger

	// Stopping is shared with the installed signal handler; either the
	// sentinel file or this flag ends the loop.
	Stopping *atomic.Bool
}

// New builds a Scheduler. Callers wire every collaborator explicitly;
// there is no package-level singleton (§9).
func New(repo, session string) *Scheduler {
	return &Scheduler{Repo: repo, Session: session, Log: logging.Nop{}}
}

// OnStart performs the one-time setup described in §4.10's on_start
// block: create the repository's tmux session and sample memory.
func (s *Scheduler) OnStart(ctx context.Context) error {
	if s.Tmux != nil {
		if _, err := s.Tmux.FindOrCreateRepositorySession(ctx, s.Session); err != nil {
			return fmt.Errorf("scheduler: create repository session: %w", err)
		}
	}
	if s.Status != nil {
		if err := s.Status.UpdateMemory(daemon.SampleRSSMB()); err != nil {
			s.Log.Warnw("failed to record initial memory sample", "error", err)
		}
	}
	s.Log.Infow("daemon started", "repo", s.Repo, "session", s.Session)
	return nil
}

func hasTerminalLabel(issue ghclient.Issue) bool {
	for _, l := range issue.SobaLabels() {
		if phase.IsTerminal(l) {
			return true
		}
	}
	return false
}

// Tick runs exactly one iteration of the loop body: integrity repair,
// admission, per-issue processing, auto-merge, and cleanup.
func (s *Scheduler) Tick(ctx context.Context) error {
	cfg := s.Config.Get()

	issues, err := s.Client.Issues(ctx, s.Repo, "open")
	if err != nil {
		return fmt.Errorf("scheduler: fetch open issues: %w", err)
	}

	if _, err := s.Integrity.CheckAndFix(ctx, s.Repo, issues); err != nil {
		s.Log.Errorw("integrity check failed", "error", err)
	}
	if _, _, err := s.Queue.QueueNextIssue(ctx, s.Repo); err != nil {
		s.Log.Errorw("admission queueing failed", "error", err)
	}

	// Re-fetch: the integrity pass and queue promotion above may have
	// just changed the label a candidate carries (e.g. todo -> queued),
	// and the processor for this same tick must observe that change.
	issues, err = s.Client.Issues(ctx, s.Repo, "open")
	if err != nil {
		return fmt.Errorf("scheduler: re-fetch open issues: %w", err)
	}

	for _, issue := range issues {
		if phase.DeterminePhase(issue.SobaLabels()) == phase.Plan {
			// A bare soba:todo issue is only admitted via
			// todo -> queued (internal/admission); the direct
			// todo -> planning path is reserved for `start ISSUE_NO`
			// and must never be driven by the daemon loop itself.
			continue
		}
		result := s.Processor.Process(ctx, s.Repo, issue, cfg)
		switch {
		case result.Skipped:
			if hasTerminalLabel(issue) {
				if err := s.Status.UpdateLastProcessed(s.Clock.Now()); err != nil {
					s.Log.Warnw("failed to record last-processed issue", "issue", issue.Number, "error", err)
				}
			}
		case result.Error != "":
			s.Log.Errorw("issue processing failed", "issue", issue.Number, "error", result.Error)
		default:
			if err := s.Status.UpdateCurrentIssue(issue.Number, string(result.Phase), s.Clock.Now()); err != nil {
				s.Log.Warnw("failed to record current issue", "issue", issue.Number, "error", err)
			}
		}
	}

	if cfg.Workflow.AutoMergeEnabled {
		if _, err := s.AutoMerge.Execute(ctx, s.Repo); err != nil {
			s.Log.Errorw("auto-merge pass failed", "error", err)
		}
	}
	if cfg.Workflow.ClosedIssueCleanupEnabled && s.Cleaner != nil && s.Cleaner.ShouldClean() {
		if err := s.Cleaner.Clean(ctx, s.Repo, s.Session); err != nil {
			s.Log.Warnw("closed-issue cleanup failed", "error", err)
		}
	}
	return nil
}

// shuttingDown reports whether the sentinel file or the shared
// stopping flag asks the loop to end between iterations.
func (s *Scheduler) shuttingDown() bool {
	if s.Sentinel.Present() {
		return true
	}
	return s.Stopping != nil && s.Stopping.Load()
}

// Run executes OnStart, then ticks until shutdown is requested,
// sleeping poll_interval seconds between iterations. It always cleans
// up the PID file on the way out, whether shutdown came from the
// sentinel file or a delivered signal.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.OnStart(ctx); err != nil {
		return err
	}
	for {
		if s.shuttingDown() {
			s.Log.Infow("shutdown requested, stopping loop")
			break
		}
		if ctx.Err() != nil {
			break
		}
		if err := s.Tick(ctx); err != nil {
			s.Log.Errorw("tick failed", "error", err)
		}
		if s.shuttingDown() {
			break
		}
		interval := time.Duration(s.Config.Get().Workflow.Interval) * time.Second
		s.Sleeper.Sleep(interval)
	}
	if err := s.PIDFile.Remove(); err != nil {
		s.Log.Warnw("failed to remove pid file on shutdown", "error", err)
	}
	return nil
}
