package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/consolestyle"
	"github.com/douhashi/soba/internal/daemon"
)

var (
	statusLogLines int
	statusJSON     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's current state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLogLines, "log", 0, "also print the last N lines of the daemon log")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON instead of a formatted summary")
}

func runStatus(cmd *cobra.Command, args []string) error {
	paths, err := statePaths()
	if err != nil {
		return err
	}

	sf := &daemon.StatusFile{Path: paths.StatusPath}
	st, err := sf.Read()
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	pf := daemon.PIDFile{Path: paths.PIDPath}
	pid, hasPID := pf.Read()
	state := "stopped"
	if hasPID && daemon.Running(pid) {
		state = "running"
	}

	fmt.Println(consolestyle.Heading("soba daemon status"))
	fmt.Printf("  %s %s", consolestyle.Section("state:"), consolestyle.Status(state))
	if state == "running" {
		fmt.Printf(" (pid %d)", pid)
	}
	fmt.Println()

	if st.CurrentIssue != nil {
		fmt.Printf("  %s #%d phase=%s started=%s\n",
			consolestyle.Section("current issue:"), st.CurrentIssue.Number, st.CurrentIssue.Phase,
			st.CurrentIssue.StartedAt.Format(time.RFC3339))
	}
	if st.LastProcessed != nil {
		fmt.Printf("  %s #%d completed=%s\n",
			consolestyle.Section("last processed:"), st.LastProcessed.Number,
			st.LastProcessed.CompletedAt.Format(time.RFC3339))
	}
	fmt.Printf("  %s %.1f MB", consolestyle.Section("memory:"), st.MemoryMB)
	if st.SystemMemoryMB > 0 {
		fmt.Printf(" / %.0f MB total", st.SystemMemoryMB)
	}
	fmt.Println()

	if statusLogLines > 0 {
		lines, err := tailLines(paths.LogPath, statusLogLines)
		if err != nil {
			return err
		}
		fmt.Println(consolestyle.Heading(fmt.Sprintf("last %d log lines:", statusLogLines)))
		for _, line := range lines {
			fmt.Println(consolestyle.Dim(line))
		}
	}
	return nil
}

func tailLines(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log file: %w", err)
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil, nil
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
