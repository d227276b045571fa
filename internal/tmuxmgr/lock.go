package tmuxmgr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/douhashi/soba/internal/clockutil"
)

// acquireLock implements the advisory, file-based lock guarding window
// creation: an O_CREATE|O_EXCL file acts as the mutex, a stale lock
// (older than staleAfter) is reclaimed rather than waited on forever,
// and the caller polls at a fixed interval until timeout.
func acquireLock(dir, name string, timeout, staleAfter time.Duration, clock clockutil.Clock, sleeper clockutil.Sleeper) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tmuxmgr: create lock dir: %w", err)
	}
	lockPath := filepath.Join(dir, name+".lock")
	deadline := clock.Now().Add(timeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, "pid=%d time=%s\n", os.Getpid(), clock.Now().Format(time.RFC3339))
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		info, statErr := os.Stat(lockPath)
		if statErr == nil && clock.Now().Sub(info.ModTime()) > staleAfter {
			_ = os.Remove(lockPath)
			continue
		}
		if clock.Now().After(deadline) {
			return nil, fmt.Errorf("tmuxmgr: lock timeout acquiring %s", name)
		}
		sleeper.Sleep(200 * time.Millisecond)
	}
}
