// Package daemon owns process identity and teardown: the PID file
// with its advisory exclusive lock, the status file, log rotation, and
// signal-driven graceful shutdown.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// PIDFile manages one daemon-identity file at Path.
type PIDFile struct {
	Path string
}

// Write opens Path (truncating it), holds an exclusive advisory lock
// for the duration of the write, then writes pid in decimal and
// releases the lock. Read does not take the lock.
func (p PIDFile) Write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("daemon: create pid file dir: %w", err)
	}
	f, err := os.OpenFile(p.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("daemon: open pid file: %w", err)
	}
	defer f.Close()
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("daemon: lock pid file: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)
	if _, err := f.WriteString(strconv.Itoa(pid)); err != nil {
		return fmt.Errorf("daemon: write pid file: %w", err)
	}
	return nil
}

// Read returns the PID recorded at Path, or ok=false if the file is
// absent or unparsable.
func (p PIDFile) Read() (int, bool) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// Remove deletes the PID file, ignoring a not-exist error.
func (p PIDFile) Remove() error {
	err := os.Remove(p.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Running uses the canonical "signal 0" probe: sending signal 0 checks
// whether the process exists without actually signaling it.
func Running(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil || err == unix.EPERM {
		return true
	}
	return false
}

// CleanupIfStale removes the PID file iff the process it names is gone.
func (p PIDFile) CleanupIfStale() (bool, error) {
	pid, ok := p.Read()
	if !ok {
		return false, nil
	}
	if Running(pid) {
		return false, nil
	}
	if err := p.Remove(); err != nil {
		return false, err
	}
	return true, nil
}

// Acquire refuses to start a new daemon while a live PID file exists,
// auto-cleaning a stale one, then writes the current process's PID.
func (p PIDFile) Acquire(pid int) error {
	if existing, ok := p.Read(); ok {
		if Running(existing) {
			return fmt.Errorf("daemon: already running with pid %d (pid file %s)", existing, p.Path)
		}
	}
	return p.Write(pid)
}
