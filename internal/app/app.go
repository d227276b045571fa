package app

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/douhashi/soba/internal/admission"
	"github.com/douhashi/soba/internal/clockutil"
	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/ghclient"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/notify"
	"github.com/douhashi/soba/internal/scheduler"
	"github.com/douhashi/soba/internal/tmuxmgr"
	"github.com/douhashi/soba/internal/workflow"
	"github.com/douhashi/soba/internal/workspace"
)

const logMaxBytes = 10 * 1024 * 1024

// App is every long-lived collaborator a CLI command needs, wired from
// one loaded Config. Commands that only need a slice of it (e.g.
// `status`) simply ignore the rest.
type App struct {
	Config  *config.Holder
	Paths   Paths
	Log     logging.Logger
	logFile *logging.RotatingFile

	Client    ghclient.Client
	Tmux      *tmuxmgr.Manager
	Workspace *workspace.Manager
	Notifier  *notify.Notifier
	Executor  *workflow.Executor
	Processor *workflow.Processor
	Queue     *admission.Queue
	Integrity *admission.IntegrityChecker
	AutoMerge *scheduler.AutoMerge
	Cleaner   *scheduler.ClosedIssueCleaner

	PIDFile  daemon.PIDFile
	Status   *daemon.StatusFile
	Sentinel daemon.Sentinel

	Session string
	PID     int
}

// Build loads cfgPath and wires every collaborator. Callers must call
// Close when done to flush and release the log file handle.
func Build(cfgPath string, paths Paths, testMode bool) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return BuildFromConfig(cfg, paths, testMode)
}

// BuildFromConfig wires an App from an already-loaded Config, letting
// callers (and tests) bypass the YAML file entirely.
func BuildFromConfig(cfg config.Config, paths Paths, testMode bool) (*App, error) {
	if err := os.MkdirAll(paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("app: create log dir: %w", err)
	}
	logFile, err := logging.NewRotatingFile(paths.LogPath, logMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("app: open log file: %w", err)
	}
	log := logging.New(zapcore.AddSync(logFile), "info")

	token, err := resolveToken(cfg.GitHub)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	client := ghclient.NewRealClient(token)

	pid := os.Getpid()
	session, err := tmuxmgr.SessionName(cfg.GitHub.Repository, pid, testMode)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("app: build session name: %w", err)
	}

	holder := config.NewHolder(cfg)
	clock := clockutil.Real{}

	var tmux *tmuxmgr.Manager
	if cfg.Workflow.UseTmux {
		tmux = tmuxmgr.New(tmuxmgr.ExecRunner{}, paths.StateDir, clock, clock, log)
	}

	var workspaceMgr *workspace.Manager
	if cfg.Git.SetupWorkspace {
		wd, err := os.Getwd()
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("app: resolve working directory: %w", err)
		}
		workspaceMgr = workspace.New(wd, cfg.Git.WorktreeBasePath)
	}

	notifier := notify.New(cfg.Slack.WebhookURL, cfg.Slack.NotificationsEnabled, log)

	executor := workflow.New(nil, tmux, workspaceMgr, notifier, log, session, time.Duration(cfg.Workflow.TmuxCommandDelay)*time.Second)
	processor := workflow.NewProcessor(client, executor, log)

	a := &App{
		Config: holder, Paths: paths, Log: log, logFile: logFile,
		Client: client, Tmux: tmux, Workspace: workspaceMgr, Notifier: notifier,
		Executor: executor, Processor: processor,
		Queue:     admission.NewQueue(client, log),
		Integrity: admission.NewIntegrityChecker(client, log, false),
		AutoMerge: scheduler.NewAutoMerge(client, log),
		Session:   session,
		PID:       pid,
		PIDFile:   daemon.PIDFile{Path: paths.PIDPath},
		Status:    &daemon.StatusFile{Path: paths.StatusPath},
		Sentinel:  daemon.Sentinel{Path: paths.SentinelPath},
	}
	if tmux != nil {
		a.Cleaner = scheduler.NewClosedIssueCleaner(client, tmux, clock, log, time.Duration(cfg.Workflow.ClosedIssueCleanupInterval)*time.Second)
	}
	return a, nil
}

// Close flushes the logger and releases the log file handle.
func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.logFile.Close()
}

// Scheduler builds the main loop over this App's wired collaborators.
func (a *App) Scheduler() *scheduler.Scheduler {
	cfg := a.Config.Get()
	s := scheduler.New(cfg.GitHub.Repository, a.Session)
	s.Client = a.Client
	s.Config = a.Config
	s.Integrity = a.Integrity
	s.Queue = a.Queue
	s.Processor = a.Processor
	s.AutoMerge = a.AutoMerge
	s.Cleaner = a.Cleaner
	s.Tmux = a.Tmux
	s.PIDFile = a.PIDFile
	s.Sentinel = a.Sentinel
	s.Status = a.Status
	s.Clock = clockutil.Real{}
	s.Sleeper = clockutil.Real{}
	s.Log = a.Log
	return s
}

// resolveToken honors the two auth modes §6 names: a literal/expanded
// env token, or a `gh auth token` passthrough.
func resolveToken(gh config.GitHub) (string, error) {
	if gh.AuthMethod == "gh" {
		return ghAuthToken()
	}
	return gh.Token, nil
}

func ghAuthToken() (string, error) {
	cmd := exec.Command("gh", "auth", "token")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("app: gh auth token: %w: %s", err, msg)
		}
		return "", fmt.Errorf("app: gh auth token: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
