package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/douhashi/soba/internal/consolestyle"
	"github.com/douhashi/soba/internal/daemon"
)

var (
	stopForce   bool
	stopTimeout int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Long: `stop writes the sentinel file and signals the daemon to shut down,
waiting up to --timeout seconds for it to exit before escalating to
SIGKILL. --force skips the wait entirely.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "kill immediately instead of waiting for a graceful exit")
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 30, "seconds to wait for a graceful shutdown")
}

func runStop(cmd *cobra.Command, args []string) error {
	paths, err := statePaths()
	if err != nil {
		return err
	}
	pf := daemon.PIDFile{Path: paths.PIDPath}
	pid, ok := pf.Read()
	if !ok || !daemon.Running(pid) {
		return fmt.Errorf("no daemon is running")
	}

	sentinel := daemon.Sentinel{Path: paths.SentinelPath}
	if err := sentinel.Create(); err != nil {
		return err
	}
	defer sentinel.Remove()

	if stopForce {
		if err := unix.Kill(pid, unix.SIGKILL); err != nil {
			return fmt.Errorf("kill daemon: %w", err)
		}
		fmt.Println(consolestyle.Success("daemon force-stopped"))
		return nil
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon: %w", err)
	}

	deadline := time.Now().Add(time.Duration(stopTimeout) * time.Second)
	for time.Now().Before(deadline) {
		if !daemon.Running(pid) {
			fmt.Println(consolestyle.Success("daemon stopped"))
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("escalate to sigkill: %w", err)
	}
	fmt.Println(consolestyle.Warn("daemon did not stop within timeout; killed"))
	return nil
}
