package workflow

import (
	"context"
	"fmt"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/phase"
)

// ProcessResult is the per-issue outcome the scheduler loop inspects to
// decide whether to update the status file.
type ProcessResult struct {
	Skipped        bool
	SkipReason     string
	Success        bool
	Phase          phase.Phase
	IssueNumber    int
	LabelUpdated   bool
	WorkflowSkipped bool
	Output         string
	Error          string

	Mode        string
	SessionName string
	WindowName  string
	PaneID      string
}

// Processor performs exactly one state transition end to end for one issue.
type Processor struct {
	Client   ghclient.Client
	Executor *Executor
	Log      logging.Logger
}

// NewProcessor builds a Processor.
func NewProcessor(client ghclient.Client, executor *Executor, log logging.Logger) *Processor {
	if log == nil {
		log = logging.Nop{}
	}
	return &Processor{Client: client, Executor: executor, Log: log}
}

// entryFor looks up the configured command for a phase by name.
func entryFor(phases config.Phases, p phase.Phase) (config.PhaseEntry, bool) {
	switch p {
	case phase.Plan, phase.QueuedToPlanning:
		return phases.Plan, phases.Plan.Command != ""
	case phase.Implement:
		return phases.Implement, phases.Implement.Command != ""
	case phase.Review:
		return phases.Review, phases.Review.Command != ""
	case phase.Revise:
		return phases.Revise, phases.Revise.Command != ""
	default:
		return config.PhaseEntry{}, false
	}
}

// Process determines issue's phase, performs the label transition, and
// (unless no phase command is configured) dispatches the phase command.
func (p *Processor) Process(ctx context.Context, repo string, issue ghclient.Issue, cfg config.Config) ProcessResult {
	ph := phase.DeterminePhase(issue.SobaLabels())
	if ph == phase.None {
		return ProcessResult{Skipped: true, SkipReason: "no phase applies to current labels", IssueNumber: issue.Number}
	}

	from := phase.CurrentLabelForPhase(ph)
	to := phase.NextLabel(ph)
	if err := p.Client.UpdateIssueLabels(ctx, repo, issue.Number, phase.Qualify(from), phase.Qualify(to)); err != nil {
		return ProcessResult{
			IssueNumber: issue.Number, Phase: ph,
			Error: fmt.Errorf("workflow: update labels for issue #%d: %w", issue.Number, err).Error(),
		}
	}

	entry, ok := entryFor(cfg.Phase, ph)
	if !ok {
		p.Log.Infow("no phase command configured, label updated only", "issue", issue.Number, "phase", ph)
		return ProcessResult{Success: true, IssueNumber: issue.Number, Phase: ph, LabelUpdated: true, WorkflowSkipped: true}
	}

	result := p.Executor.Execute(ctx, repo, entry, issue.Number, ph, cfg.Workflow.UseTmux, cfg.Git.SetupWorkspace)
	return ProcessResult{
		Success: result.Success, IssueNumber: issue.Number, Phase: ph, LabelUpdated: true,
		Output: result.Output, Error: result.Error,
		Mode: result.Mode, SessionName: result.SessionName, WindowName: result.WindowName, PaneID: result.PaneID,
	}
}
