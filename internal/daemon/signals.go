package daemon

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/douhashi/soba/internal/logging"
)

// ShutdownHandler installs handlers for the interrupt and terminate
// signal class: each logs the signal, runs an optional cleanup
// callback, deletes the PID file, and flips Stopping so the scheduler
// loop's between-iteration check exits cleanly.
type ShutdownHandler struct {
	Stopping atomic.Bool
	PIDFile  PIDFile
	Log      logging.Logger
	Cleanup  func()

	ch chan os.Signal
}

// NewShutdownHandler builds a handler bound to pidFile.
func NewShutdownHandler(pidFile PIDFile, log logging.Logger, cleanup func()) *ShutdownHandler {
	if log == nil {
		log = logging.Nop{}
	}
	return &ShutdownHandler{PIDFile: pidFile, Log: log, Cleanup: cleanup}
}

// Install starts listening for SIGINT/SIGTERM on a background
// goroutine. Call Stop to release the signal.Notify registration.
func (h *ShutdownHandler) Install() {
	h.ch = make(chan os.Signal, 1)
	signal.Notify(h.ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-h.ch
		if !ok {
			return
		}
		h.Log.Infow("received shutdown signal", "signal", sig.String())
		h.Stopping.Store(true)
		if h.Cleanup != nil {
			h.Cleanup()
		}
		if err := h.PIDFile.Remove(); err != nil {
			h.Log.Warnw("failed to remove pid file during shutdown", "error", err)
		}
	}()
}

// Stop releases the signal registration; used in tests and on clean exit.
func (h *ShutdownHandler) Stop() {
	signal.Stop(h.ch)
	close(h.ch)
}
