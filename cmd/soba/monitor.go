package main

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/clockutil"
	"github.com/douhashi/soba/internal/consolestyle"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/tmuxmgr"
)

var monitorCleanupDays int

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "List soba tmux sessions, or prune old logs and sessions",
	Long: `Without --cleanup, monitor lists every soba-* tmux session with its
repository and age. With --cleanup DAYS, it instead deletes daemon log
files (current and rotated) and tmux sessions older than DAYS.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().IntVar(&monitorCleanupDays, "cleanup", 0, "delete logs and sessions older than this many days")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	paths, err := statePaths()
	if err != nil {
		return err
	}

	if monitorCleanupDays > 0 {
		retention := time.Duration(monitorCleanupDays) * 24 * time.Hour
		if err := daemon.CleanupOldLogs(paths.LogDir, "daemon.log", retention); err != nil {
			return err
		}
		clock := clockutil.Real{}
		mgr := tmuxmgr.New(tmuxmgr.ExecRunner{}, paths.StateDir, clock, clock, nil)
		if err := mgr.CleanupOldSessions(cmd.Context(), "soba-", retention); err != nil {
			return err
		}
		fmt.Println(consolestyle.Success(fmt.Sprintf("pruned logs and sessions older than %d days", monitorCleanupDays)))
		return nil
	}

	out, err := exec.CommandContext(cmd.Context(), "tmux", "list-sessions", "-F", "#{session_name} #{session_created}").Output()
	if err != nil {
		fmt.Println(consolestyle.Dim("no tmux server running"))
		return nil
	}

	fmt.Println(consolestyle.Heading("soba sessions:"))
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		name := fields[0]
		if !tmuxmgr.IsSobaSession(name) {
			continue
		}
		repo, pid := parseSessionName(name)
		age := "unknown"
		if len(fields) > 1 {
			if created, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
				age = time.Since(time.Unix(created, 0)).Round(time.Second).String()
			}
		}
		fmt.Printf("  %-40s repo=%-24s pid=%-8s age=%s\n", name, repo, pid, age)
	}
	return nil
}

// parseSessionName splits a "soba-<repo>-<pid>" (or test-mode
// "soba-test-<repo>-<pid>-<hex8>") session name back into its repo and
// pid components, best-effort: the name is split at its last hyphen, so
// for a test-mode name the hex suffix is reported as the pid and the
// real pid stays at the end of repo.
func parseSessionName(name string) (repo, pid string) {
	trimmed := strings.TrimPrefix(name, "soba-")
	trimmed = strings.TrimPrefix(trimmed, "test-")
	idx := strings.LastIndex(trimmed, "-")
	if idx < 0 {
		return trimmed, ""
	}
	return trimmed[:idx], trimmed[idx+1:]
}
