// Package console detects how the process was launched and wires Ctrl+C
// handling that survives SDL3's own console handler on Windows.
package console

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
