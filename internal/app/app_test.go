package app_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/app"
	"github.com/douhashi/soba/internal/config"
)

func TestBuildFromConfig_WiresMinimalCollaborators(t *testing.T) {
	dir := t.TempDir()
	paths := app.PathsUnder(dir)

	cfg := config.Default()
	cfg.GitHub.Repository = "owner/name"
	cfg.GitHub.Token = "test-token"
	cfg.Workflow.UseTmux = false
	cfg.Git.SetupWorkspace = false

	a, err := app.BuildFromConfig(cfg, paths, true)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Client)
	assert.Nil(t, a.Tmux)
	assert.Nil(t, a.Cleaner)
	assert.Contains(t, a.Session, "soba-test-owner-name-")
	assert.Equal(t, filepath.Join(dir, "soba.pid"), a.PIDFile.Path)

	sched := a.Scheduler()
	assert.Equal(t, "owner/name", sched.Repo)
	assert.Equal(t, a.Session, sched.Session)
}

func TestPerRepoPIDPath_SanitizesRepoSlug(t *testing.T) {
	paths := app.PathsUnder("/tmp/soba-state")
	got := paths.PerRepoPIDPath("owner/name")
	assert.Equal(t, "/tmp/soba-state/pids/owner-name.pid", got)
}
