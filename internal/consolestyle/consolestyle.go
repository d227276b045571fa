// Package consolestyle provides the small set of ANSI color helpers the
// CLI's interactive commands (status, open, monitor) use to format
// terminal output, adapted from the teacher's util.go coloring helpers.
package consolestyle

import (
	"os"
	"strings"

	"golang.org/x/term"
)

var enabled = initEnabled()

func initEnabled() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("TERM")), "dumb") {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func colorize(s string, codes ...string) string {
	if !enabled || s == "" {
		return s
	}
	return "\x1b[" + strings.Join(codes, ";") + "m" + s + "\x1b[0m"
}

func Heading(s string) string { return colorize(s, "1", "36") }
func Section(s string) string { return colorize(s, "1", "34") }
func Dim(s string) string     { return colorize(s, "90") }
func Success(s string) string { return colorize(s, "32") }
func Warn(s string) string    { return colorize(s, "33") }
func Error(s string) string   { return colorize(s, "31") }

// Status colors a state word by its meaning: green for healthy/running
// states, yellow for waiting states, red for failure/absence.
func Status(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running", "ok", "active", "merged", "done":
		return Success(s)
	case "queued", "waiting", "pending":
		return Warn(s)
	case "stopped", "missing", "not found", "error", "failed":
		return Error(s)
	default:
		return s
	}
}
