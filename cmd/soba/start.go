package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/app"
	"github.com/douhashi/soba/internal/consolestyle"
	"github.com/douhashi/soba/internal/daemon"
)

var (
	startDaemonize bool
	startNoTmux    bool
)

var startCmd = &cobra.Command{
	Use:   "start [ISSUE_NO]",
	Short: "Run the workflow loop, or process a single issue directly",
	Long: `Without an issue number, start runs the poll-and-dispatch scheduler
loop: each tick admits at most one new issue and drives every open
issue one phase further.

With an issue number, start processes that one issue directly,
bypassing admission (the "todo -> planning" direct path named in the
phase strategy) - useful for testing a phase command against a single
issue without touching the rest of the repository's queue.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startDaemonize, "daemon", false, "detach and run in the background")
	startCmd.Flags().BoolVar(&startNoTmux, "no-tmux", false, "force direct execution, bypassing tmux")
}

func runStart(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return runStartSingleIssue(cmd, args[0])
	}
	return runStartDaemon(cmd)
}

func runStartSingleIssue(cmd *cobra.Command, arg string) error {
	issueNumber, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid issue number %q", arg)
	}

	paths, err := statePaths()
	if err != nil {
		return err
	}
	a, err := app.Build(cfgPath, paths, false)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.Config.Get()
	if startNoTmux {
		cfg.Workflow.UseTmux = false
	}

	pidFile := daemon.PIDFile{Path: paths.PerRepoPIDPath(cfg.GitHub.Repository)}
	if err := pidFile.Acquire(a.PID); err != nil {
		return err
	}
	defer pidFile.Remove()

	issue, err := a.Client.Issue(cmd.Context(), cfg.GitHub.Repository, issueNumber)
	if err != nil {
		return fmt.Errorf("fetch issue #%d: %w", issueNumber, err)
	}

	result := a.Processor.Process(cmd.Context(), cfg.GitHub.Repository, issue, cfg)
	if result.Skipped {
		fmt.Println(consolestyle.Warn("skipped:"), result.SkipReason)
		return nil
	}
	if result.Error != "" {
		return fmt.Errorf("issue #%d: %s", issueNumber, result.Error)
	}
	fmt.Printf("%s issue #%d entered phase %s (%s)\n", consolestyle.Success("ok"), issueNumber, result.Phase, result.Mode)
	return nil
}

// daemonizedEnvVar marks a process as the already-detached child, so a
// re-exec only ever happens once per `start --daemon` invocation.
const daemonizedEnvVar = "SOBA_DAEMONIZED"

func runStartDaemon(cmd *cobra.Command) error {
	paths, err := statePaths()
	if err != nil {
		return err
	}

	if startDaemonize && os.Getenv(daemonizedEnvVar) != "1" {
		return daemonizeAndExit(paths)
	}

	a, err := app.Build(cfgPath, paths, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.PIDFile.Acquire(a.PID); err != nil {
		return err
	}

	handler := daemon.NewShutdownHandler(a.PIDFile, a.Log, nil)
	handler.Install()
	defer handler.Stop()

	sched := a.Scheduler()
	sched.Stopping = &handler.Stopping

	return sched.Run(context.Background())
}

// daemonizeAndExit re-execs the current binary with stdio redirected
// to the daemon log, detached into its own session, then exits the
// foreground process. The child inherits the working directory, per
// §4.9's "detach... preserving working directory".
func daemonizeAndExit(paths app.Paths) error {
	if err := os.MkdirAll(paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("daemon: create log dir: %w", err)
	}
	logFile, err := os.OpenFile(paths.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("daemon: open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(os.Args[0], os.Args[1:]...)
	child.Env = append(os.Environ(), daemonizedEnvVar+"=1")
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("daemon: start detached process: %w", err)
	}
	fmt.Printf("%s daemon started, pid %d\n", consolestyle.Success("ok"), child.Process.Pid)
	return nil
}
