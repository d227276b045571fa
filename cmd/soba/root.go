package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/app"
	"github.com/douhashi/soba/internal/consolestyle"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "soba",
	Short: "Drive GitHub issues through a planning/implementation/review workflow",
	Long: `soba polls a single GitHub repository, advancing one issue at a time
through plan -> implement -> review (with revise on request-changes),
invoking an external coding-agent command inside a dedicated tmux pane
at each step.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./.soba/config.yml", "path to soba's config file")
	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, openCmd, monitorCmd, initCmd)
}

// Execute runs the root command, printing a styled error and exiting
// non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, consolestyle.Error("error:")+" "+err.Error())
		os.Exit(1)
	}
}

// statePaths resolves the per-user state directory, honoring
// SOBA_STATE_DIR for tests and CI that cannot write to $HOME.
func statePaths() (app.Paths, error) {
	if dir := os.Getenv("SOBA_STATE_DIR"); dir != "" {
		return app.PathsUnder(dir), nil
	}
	return app.DefaultPaths()
}
