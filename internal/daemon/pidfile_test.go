package daemon_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/daemon"
)

func TestPIDFile_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soba.pid")
	pf := daemon.PIDFile{Path: path}

	require.NoError(t, pf.Write(4242))
	pid, ok := pf.Read()
	require.True(t, ok)
	assert.Equal(t, 4242, pid)
}

func TestPIDFile_ReadMissingFileReturnsNotOK(t *testing.T) {
	pf := daemon.PIDFile{Path: filepath.Join(t.TempDir(), "absent.pid")}
	_, ok := pf.Read()
	assert.False(t, ok)
}

func TestRunning_TrueForOwnProcess(t *testing.T) {
	assert.True(t, daemon.Running(os.Getpid()))
}

func TestRunning_FalseForImplausiblePID(t *testing.T) {
	// PID_MAX on Linux is well below this; no process will ever hold it.
	assert.False(t, daemon.Running(1<<30))
}

func TestCleanupIfStale_DeletesWhenProcessGone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soba.pid")
	pf := daemon.PIDFile{Path: path}
	require.NoError(t, pf.Write(1<<30))

	deleted, err := pf.CleanupIfStale()
	require.NoError(t, err)
	assert.True(t, deleted)
	_, ok := pf.Read()
	assert.False(t, ok)
}

func TestCleanupIfStale_KeepsFileWhenProcessAlive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soba.pid")
	pf := daemon.PIDFile{Path: path}
	require.NoError(t, pf.Write(os.Getpid()))

	deleted, err := pf.CleanupIfStale()
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAcquire_RefusesWhenLiveDaemonHoldsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soba.pid")
	pf := daemon.PIDFile{Path: path}
	require.NoError(t, pf.Write(os.Getpid()))

	err := pf.Acquire(99999)
	assert.Error(t, err)
}

func TestAcquire_ReclaimsStalePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soba.pid")
	pf := daemon.PIDFile{Path: path}
	require.NoError(t, pf.Write(1<<30))

	require.NoError(t, pf.Acquire(os.Getpid()))
	pid, ok := pf.Read()
	require.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)
}
