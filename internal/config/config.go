// Package config loads and holds the immutable configuration value
// threaded through the scheduler. There is no package-level singleton:
// callers hold a *Holder and call its Reload to atomically swap in a
// freshly parsed Config.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// GitHub holds the repository identity and auth mode.
type GitHub struct {
	Repository string `yaml:"repository"`
	Token       string `yaml:"token"`
	AuthMethod string `yaml:"auth_method"` // "gh" or "env"
}

// PhaseLabels names the soba:* labels per phase, overridable for repos
// that already use a different label vocabulary.
type PhaseLabels struct {
	Todo             string `yaml:"todo"`
	Queued           string `yaml:"queued"`
	Planning         string `yaml:"planning"`
	Ready            string `yaml:"ready"`
	Doing            string `yaml:"doing"`
	ReviewRequested  string `yaml:"review_requested"`
	Reviewing        string `yaml:"reviewing"`
	Done             string `yaml:"done"`
	RequiresChanges  string `yaml:"requires_changes"`
	Revising         string `yaml:"revising"`
	Merged           string `yaml:"merged"`
}

// Workflow holds scheduler-loop tunables.
type Workflow struct {
	Interval                   int         `yaml:"interval"`
	UseTmux                    bool        `yaml:"use_tmux"`
	AutoMergeEnabled           bool        `yaml:"auto_merge_enabled"`
	ClosedIssueCleanupEnabled  bool        `yaml:"closed_issue_cleanup_enabled"`
	ClosedIssueCleanupInterval int         `yaml:"closed_issue_cleanup_interval"`
	TmuxCommandDelay           int         `yaml:"tmux_command_delay"`
	PhaseLabels                PhaseLabels `yaml:"phase_labels"`
}

// Slack holds the webhook configuration.
type Slack struct {
	WebhookURL           string `yaml:"webhook_url"`
	NotificationsEnabled bool   `yaml:"notifications_enabled"`
}

// Git holds worktree configuration.
type Git struct {
	WorktreeBasePath string `yaml:"worktree_base_path"`
	SetupWorkspace   bool   `yaml:"setup_workspace"`
}

// PhaseEntry is one phase's command definition.
type PhaseEntry struct {
	Command   string   `yaml:"command"`
	Options   []string `yaml:"options"`
	Parameter string   `yaml:"parameter"`
}

// Phases holds the four phase-command definitions.
type Phases struct {
	Plan      PhaseEntry `yaml:"plan"`
	Implement PhaseEntry `yaml:"implement"`
	Review    PhaseEntry `yaml:"review"`
	Revise    PhaseEntry `yaml:"revise"`
}

// Config is the full, immutable configuration value.
type Config struct {
	GitHub   GitHub   `yaml:"github"`
	Workflow Workflow `yaml:"workflow"`
	Slack    Slack    `yaml:"slack"`
	Git      Git      `yaml:"git"`
	Phase    Phases   `yaml:"phase"`
}

// Default returns a Config with the documented defaults applied, to be
// overlaid by whatever the YAML file supplies.
func Default() Config {
	return Config{
		Workflow: Workflow{
			Interval:                   10,
			UseTmux:                    true,
			AutoMergeEnabled:           false,
			ClosedIssueCleanupEnabled:  true,
			ClosedIssueCleanupInterval: 300,
			TmuxCommandDelay:           3,
			PhaseLabels: PhaseLabels{
				Todo: "todo", Queued: "queued", Planning: "planning", Ready: "ready",
				Doing: "doing", ReviewRequested: "review-requested", Reviewing: "reviewing",
				Done: "done", RequiresChanges: "requires-changes", Revising: "revising", Merged: "merged",
			},
		},
		Git: Git{WorktreeBasePath: ".git/soba/worktrees"},
	}
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv resolves ${VAR} placeholders against the process
// environment. Unset variables expand to the empty string.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := envPattern.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})
}

// Load parses the YAML file at path, overlaying it on Default, then
// layers environment-variable overrides on top via viper (SOBA_* wins
// over the file, letting secrets stay out of .soba/config.yml
// entirely), and finally expands ${VAR} placeholders still present in
// the token and webhook URL fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.GitHub.Token = expandEnv(cfg.GitHub.Token)
	cfg.Slack.WebhookURL = expandEnv(cfg.Slack.WebhookURL)
	return cfg, nil
}

// applyEnvOverrides binds the handful of fields operators expect to
// override without touching the checked-in config file: the token,
// the repository slug (useful for running the same binary against a
// fork in CI), the auth method, and the Slack webhook.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("soba")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if val := v.GetString("github.token"); val != "" {
		cfg.GitHub.Token = val
	}
	if val := v.GetString("github.repository"); val != "" {
		cfg.GitHub.Repository = val
	}
	if val := v.GetString("github.auth_method"); val != "" {
		cfg.GitHub.AuthMethod = val
	}
	if val := v.GetString("slack.webhook_url"); val != "" {
		cfg.Slack.WebhookURL = val
	}
}

// Validate checks the invariants Load must enforce before the
// scheduler trusts the value (interval floor, repository shape).
func (c Config) Validate() error {
	if c.Workflow.Interval < 10 {
		return fmt.Errorf("config: workflow.interval must be >= 10, got %d", c.Workflow.Interval)
	}
	if c.GitHub.Repository == "" {
		return fmt.Errorf("config: github.repository is required")
	}
	return nil
}

// Holder threads a live, atomically-swappable Config through the
// daemon, replacing a module-level configuration singleton.
type Holder struct {
	v atomic.Value
}

// NewHolder wraps an initial Config.
func NewHolder(cfg Config) *Holder {
	h := &Holder{}
	h.v.Store(cfg)
	return h
}

// Get returns the currently active Config.
func (h *Holder) Get() Config { return h.v.Load().(Config) }

// Reload parses path and atomically swaps it in, returning the new
// value. The old value remains valid for anyone still holding it.
func (h *Holder) Reload(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	h.v.Store(cfg)
	return cfg, nil
}
