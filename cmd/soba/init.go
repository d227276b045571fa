package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/consolestyle"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .soba/config.yml",
	RunE:  runInit,
}

const configTemplate = `github:
  repository: "owner/name"
  token: "${GITHUB_TOKEN}"
  auth_method: "env"
workflow:
  interval: 10
  use_tmux: true
  tmux_command_delay: 3
  auto_merge_enabled: false
  closed_issue_cleanup_enabled: true
  closed_issue_cleanup_interval: 300
  phase_labels:
    todo: "todo"
    queued: "queued"
    planning: "planning"
    ready: "ready"
    doing: "doing"
    review_requested: "review-requested"
    reviewing: "reviewing"
    done: "done"
    requires_changes: "requires-changes"
    revising: "revising"
    merged: "merged"
slack:
  webhook_url: "${SLACK_WEBHOOK_URL}"
  notifications_enabled: false
git:
  setup_workspace: true
  worktree_base_path: ".git/soba/worktrees"
phase:
  plan:
    command: "claude"
    options: ["--dangerously-skip-permissions"]
    parameter: "Plan the work for issue {{issue-number}}."
  implement:
    command: "claude"
    options: ["--dangerously-skip-permissions"]
    parameter: "Implement issue {{issue-number}} per its plan."
  review:
    command: "claude"
    options: ["--dangerously-skip-permissions"]
    parameter: "Review the changes made for issue {{issue-number}}."
  revise:
    command: "claude"
    options: ["--dangerously-skip-permissions"]
    parameter: "Address review feedback on issue {{issue-number}}."
`

func runInit(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(".soba", 0o755); err != nil {
		return fmt.Errorf("create .soba directory: %w", err)
	}
	path := filepath.Join(".soba", "config.yml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Println(consolestyle.Success("wrote " + path))
	fmt.Println(consolestyle.Dim("edit github.repository and the phase commands, then run `soba start --daemon`."))
	return nil
}
