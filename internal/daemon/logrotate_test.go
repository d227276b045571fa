package daemon_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/daemon"
)

func TestRotateIfNeeded_RotatesToLowestUnusedSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.log")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(path+".1", []byte("old"), 0o644))

	rotated, err := daemon.RotateIfNeeded(path, 50)
	require.NoError(t, err)
	assert.True(t, rotated)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "original path should be renamed away")
	info, err := os.Stat(path + ".2")
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.Size())
}

func TestRotateIfNeeded_NoopUnderThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.log")
	require.NoError(t, os.WriteFile(path, make([]byte, 10), 0o644))

	rotated, err := daemon.RotateIfNeeded(path, 50)
	require.NoError(t, err)
	assert.False(t, rotated)
}

func TestRotateIfNeeded_MissingFileIsNoop(t *testing.T) {
	rotated, err := daemon.RotateIfNeeded(filepath.Join(t.TempDir(), "absent.log"), 50)
	require.NoError(t, err)
	assert.False(t, rotated)
}

func TestCleanupOldLogs_RemovesOnlyStaleFiles(t *testing.T) {
	dir := t.TempDir()
	fresh := filepath.Join(dir, "daemon.log")
	stale := filepath.Join(dir, "daemon.log.1")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	require.NoError(t, daemon.CleanupOldLogs(dir, "daemon.log", 24*time.Hour))
	_, err := os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
