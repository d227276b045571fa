// Command soba drives individual GitHub issues through the
// plan/implement/review workflow state machine described by the core
// packages under internal/. See `soba --help` for the command surface.
package main

func main() {
	Execute()
}
