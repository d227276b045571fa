// Package workflow builds and dispatches the phase command line: the
// Workflow Executor (assembly, workspace setup, Slack notice, direct
// or tmux dispatch) and the Issue Processor that drives one label
// transition end to end.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/notify"
	"github.com/douhashi/soba/internal/phase"
	"github.com/douhashi/soba/internal/tmuxmgr"
	"github.com/douhashi/soba/internal/workspace"
)

// ProcessRunner runs a command vector directly (no tmux), capturing
// output. Swapped for a fake in tests.
type ProcessRunner interface {
	Run(ctx context.Context, dir string, argv []string) (output string, exitCode int, err error)
}

// ExecProcessRunner is the production ProcessRunner.
type ExecProcessRunner struct{}

func (ExecProcessRunner) Run(ctx context.Context, dir string, argv []string) (string, int, error) {
	if len(argv) == 0 {
		return "", -1, errors.New("workflow: empty command vector")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		exitCode = -1
	}
	return combined.String(), exitCode, err
}

// Result is what the executor reports back to the issue processor.
type Result struct {
	Success     bool
	Output      string
	Error       string
	ExitCode    int
	Mode        string // "direct" or "tmux"
	SessionName string
	WindowName  string
	PaneID      string
}

// Executor assembles and dispatches one phase's command.
type Executor struct {
	Process   ProcessRunner
	Tmux      *tmuxmgr.Manager
	Workspace *workspace.Manager
	Notifier  *notify.Notifier
	Log       logging.Logger

	Session      string // this daemon's repository-scope tmux session, if tmux is in use
	CommandDelay time.Duration
}

// New builds an Executor. workspaceMgr, tmuxMgr, and notifier may each
// be nil when the corresponding feature is disabled by configuration.
func New(process ProcessRunner, tmuxMgr *tmuxmgr.Manager, workspaceMgr *workspace.Manager, notifier *notify.Notifier, log logging.Logger, session string, commandDelay time.Duration) *Executor {
	if log == nil {
		log = logging.Nop{}
	}
	if process == nil {
		process = ExecProcessRunner{}
	}
	return &Executor{
		Process: process, Tmux: tmuxMgr, Workspace: workspaceMgr, Notifier: notifier,
		Log: log, Session: session, CommandDelay: commandDelay,
	}
}

// buildArgv assembles [command] + options + [substituted parameter].
func buildArgv(entry config.PhaseEntry, issueNumber int) []string {
	argv := append([]string{entry.Command}, entry.Options...)
	if entry.Parameter != "" {
		argv = append(argv, SubstituteIssueNumber(entry.Parameter, issueNumber))
	}
	return argv
}

// Execute runs entry's command for issueNumber under phaseName,
// dispatching to tmux when useTmux is set (falling back to direct
// execution on any tmux-layer failure), or direct execution otherwise.
func (e *Executor) Execute(ctx context.Context, repo string, entry config.PhaseEntry, issueNumber int, phaseName phase.Phase, useTmux, setupWorkspace bool) Result {
	argv := buildArgv(entry, issueNumber)

	dir := ""
	if setupWorkspace && e.Workspace != nil {
		if err := e.Workspace.UpdateMainBranch(ctx); err != nil {
			e.Log.Warnw("workspace main-branch update failed, continuing without it", "error", err, "issue", issueNumber)
		}
		worktree, err := e.Workspace.EnsureWorktree(ctx, issueNumber)
		if err != nil {
			e.Log.Warnw("workspace worktree setup failed, continuing in current directory", "error", err, "issue", issueNumber)
		} else {
			dir = worktree
		}
	}

	if e.Notifier != nil {
		e.Notifier.PhaseStarted(repo, issueNumber, string(phaseName))
	}

	if useTmux && e.Tmux != nil {
		result, err := e.dispatchTmux(ctx, argv, dir, issueNumber, phaseName)
		if err == nil {
			return result
		}
		e.Log.Warnw("tmux dispatch failed, falling back to direct execution", "error", err, "issue", issueNumber)
	}
	return e.dispatchDirect(ctx, argv, dir)
}

func (e *Executor) dispatchDirect(ctx context.Context, argv []string, dir string) Result {
	output, exitCode, err := e.Process.Run(ctx, dir, argv)
	res := Result{Success: exitCode == 0, Output: output, ExitCode: exitCode, Mode: "direct"}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (e *Executor) dispatchTmux(ctx context.Context, argv []string, dir string, issueNumber int, phaseName phase.Phase) (Result, error) {
	window, err := e.Tmux.CreateIssueWindow(ctx, e.Session, issueNumber)
	if err != nil {
		return Result{}, err
	}
	paneID, err := e.Tmux.CreatePhasePane(ctx, e.Session, window, string(phaseName), false)
	if err != nil {
		return Result{}, err
	}

	line := shellLine(argv, dir)
	target := e.Session + ":" + window + "." + paneID
	if err := e.Tmux.SendKeys(ctx, target, line, e.CommandDelay); err != nil {
		return Result{}, err
	}

	return Result{
		Success: true, Mode: "tmux",
		SessionName: e.Session, WindowName: window, PaneID: paneID,
	}, nil
}

// shellLine renders argv as a single shell line for tmux's send-keys,
// prefixed with a cd into the worktree when one is set. This is the
// one place a shell string (rather than an argv vector) is built,
// because tmux's contract takes a line, not a vector.
func shellLine(argv []string, dir string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	line := strings.Join(quoted, " ")
	if dir != "" {
		return fmt.Sprintf("cd %s && %s", shellQuote(dir), line)
	}
	return line
}

// shellQuote wraps s in single quotes, escaping any embedded single
// quote, so it survives as one argument to the user's shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
