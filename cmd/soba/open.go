package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/clockutil"
	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/consolestyle"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/tmuxmgr"
)

var openListWindows bool

var openCmd = &cobra.Command{
	Use:   "open [ISSUE_NO]",
	Short: "Attach to the repository or issue tmux session",
	Long: `Without an issue number, open attaches to the repository's session.
With one, it attaches to that issue's window instead. --list prints
the open issue windows without attaching to anything.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOpen,
}

func init() {
	openCmd.Flags().BoolVar(&openListWindows, "list", false, "list issue windows instead of attaching")
}

func runOpen(cmd *cobra.Command, args []string) error {
	paths, err := statePaths()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	pf := daemon.PIDFile{Path: paths.PIDPath}
	pid, ok := pf.Read()
	if !ok || !daemon.Running(pid) {
		return fmt.Errorf("no daemon is running")
	}

	session, err := tmuxmgr.SessionName(cfg.GitHub.Repository, pid, false)
	if err != nil {
		return err
	}
	clock := clockutil.Real{}
	mgr := tmuxmgr.New(tmuxmgr.ExecRunner{}, paths.StateDir, clock, clock, nil)

	if openListWindows {
		windows, err := mgr.ListIssueWindows(cmd.Context(), session)
		if err != nil {
			return err
		}
		fmt.Println(consolestyle.Heading("issue windows:"))
		for _, w := range windows {
			fmt.Println("  " + w)
		}
		return nil
	}

	target := session
	if len(args) == 1 {
		issueNumber, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		window, found := mgr.FindIssueWindow(cmd.Context(), session, issueNumber)
		if !found {
			return fmt.Errorf("no window for issue #%d", issueNumber)
		}
		target = session + ":" + window
	}

	attach := exec.Command("tmux", "attach-session", "-t", target)
	attach.Stdin = os.Stdin
	attach.Stdout = os.Stdout
	attach.Stderr = os.Stderr
	return attach.Run()
}
