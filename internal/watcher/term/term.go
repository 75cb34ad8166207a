// Package term hides and restores the terminal cursor around a live
// watcher render loop, the way the teacher's CLI entrypoint gates
// interactive behavior on golang.org/x/term.IsTerminal.
package term

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	hideCursor = "\x1b[?25l"
	showCursor = "\x1b[?25h"
)

// CursorGuard hides the cursor on a real terminal and restores it on
// Close; on a non-terminal (piped output, CI) it is a no-op so command
// output stays plain.
type CursorGuard struct {
	out    io.Writer
	active bool
}

// NewCursorGuard hides the cursor on out if it's attached to a
// terminal, and returns a guard whose Close restores it.
func NewCursorGuard(out *os.File) *CursorGuard {
	g := &CursorGuard{out: out}
	if term.IsTerminal(int(out.Fd())) {
		g.active = true
		fmt.Fprint(out, hideCursor)
	}
	return g
}

// Close restores the cursor. Safe to call multiple times.
func (g *CursorGuard) Close() {
	if !g.active {
		return
	}
	g.active = false
	fmt.Fprint(g.out, showCursor)
}
