package shell

import (
	"os"

	"golang.org/x/term"
)

// terminal remembers the mode of an interactive stdin so it can be put back
// after a foreground command that changed it (an editor, or one killed while
// in raw mode). A nil *terminal does nothing.
type terminal struct {
	fd    int
	state *term.State
}

func snapshotTerminal(f *os.File) *terminal {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	state, err := term.GetState(fd)
	if err != nil {
		return nil
	}
	return &terminal{fd: fd, state: state}
}

func (t *terminal) restore() {
	if t == nil {
		return
	}
	_ = term.Restore(t.fd, t.state)
}
