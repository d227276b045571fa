// Package app wires the core's components into a runnable daemon or
// one-shot CLI invocation: config load, GitHub client construction,
// tmux/workspace/notifier setup, and the daemon-identity file layout
// under the per-user state directory (§6's "Persisted layout").
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/douhashi/soba/internal/tmuxmgr"
)

// Paths is the full persisted-file layout under ~/.soba.
type Paths struct {
	StateDir     string
	PIDPath      string
	StatusPath   string
	LogDir       string
	LogPath      string
	SentinelPath string
	PIDSubDir    string
}

// DefaultPaths resolves the state directory against the current
// user's home, per §6's persisted-layout table.
func DefaultPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("app: resolve home directory: %w", err)
	}
	return PathsUnder(filepath.Join(home, ".soba")), nil
}

// PathsUnder builds a Paths rooted at an explicit state directory,
// used by tests that don't want to touch the real home directory.
func PathsUnder(stateDir string) Paths {
	return Paths{
		StateDir:     stateDir,
		PIDPath:      filepath.Join(stateDir, "soba.pid"),
		StatusPath:   filepath.Join(stateDir, "status.json"),
		LogDir:       filepath.Join(stateDir, "logs"),
		LogPath:      filepath.Join(stateDir, "logs", "daemon.log"),
		SentinelPath: filepath.Join(stateDir, "stopping"),
		PIDSubDir:    filepath.Join(stateDir, "pids"),
	}
}

// PerRepoPIDPath is the scoped PID file variant used by `soba start
// ISSUE_NO`, so a one-shot single-issue run and the long-lived daemon
// never fight over the same PID file.
func (p Paths) PerRepoPIDPath(repo string) string {
	return filepath.Join(p.PIDSubDir, tmuxmgr.Sanitize(repo)+".pid")
}
