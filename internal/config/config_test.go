package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/soba/internal/config"
)

const sampleYAML = `
github:
  repository: "owner/name"
  token: "${TEST_SOBA_TOKEN}"
  auth_method: "env"
workflow:
  interval: 15
  use_tmux: true
phase:
  plan:
    command: "my-agent"
    options: ["--quiet"]
    parameter: "plan {{issue-number}}"
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_AppliesDefaultsAndOverlaysYAML(t *testing.T) {
	t.Setenv("TEST_SOBA_TOKEN", "secret-value")
	path := writeTemp(t, sampleYAML)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "owner/name", cfg.GitHub.Repository)
	assert.Equal(t, "secret-value", cfg.GitHub.Token)
	assert.Equal(t, 15, cfg.Workflow.Interval)
	assert.True(t, cfg.Workflow.UseTmux)
	assert.Equal(t, "my-agent", cfg.Phase.Plan.Command)
	// Defaults not overridden by the YAML survive the overlay.
	assert.Equal(t, ".git/soba/worktrees", cfg.Git.WorktreeBasePath)
	assert.Equal(t, "ready", cfg.Workflow.PhaseLabels.Ready)
}

func TestLoad_RejectsIntervalBelowFloor(t *testing.T) {
	path := writeTemp(t, `
github: { repository: "o/r" }
workflow: { interval: 5 }
`)
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_RequiresRepository(t *testing.T) {
	path := writeTemp(t, `workflow: { interval: 10 }`)
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestHolder_ReloadSwapsAtomically(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	holder := config.NewHolder(cfg)
	assert.Equal(t, 15, holder.Get().Workflow.Interval)

	updated := writeTemp(t, `
github: { repository: "owner/name" }
workflow: { interval: 30 }
`)
	_, err = holder.Reload(updated)
	require.NoError(t, err)
	assert.Equal(t, 30, holder.Get().Workflow.Interval)
}
