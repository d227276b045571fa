package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sentinel is the empty "stopping" file the stop command writes and
// the scheduler loop polls between iterations to begin a graceful
// shutdown without needing to deliver a signal at all.
type Sentinel struct {
	Path string
}

// Create writes an empty sentinel file, creating its directory if needed.
func (s Sentinel) Create() error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("daemon: create sentinel dir: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("daemon: create sentinel: %w", err)
	}
	return f.Close()
}

// Present reports whether the sentinel file currently exists.
func (s Sentinel) Present() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Remove deletes the sentinel file, ignoring a not-exist error.
func (s Sentinel) Remove() error {
	err := os.Remove(s.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
