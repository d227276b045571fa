package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/logging"
)

func TestRotatingFile_RotatesExactlyOnceOverThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	f, err := logging.NewRotatingFile(path, 10)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = f.Write([]byte("more"))
	require.NoError(t, err)

	data, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "more", string(data))
}

func TestRotatingFile_PicksLowestUnusedSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.log")
	require.NoError(t, os.WriteFile(path+".1", []byte("old"), 0o644))

	f, err := logging.NewRotatingFile(path, 5)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("123456"))
	require.NoError(t, err)

	_, err = os.Stat(path + ".2")
	require.NoError(t, err)
}
