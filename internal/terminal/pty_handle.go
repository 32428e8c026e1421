package terminal

import (
	"io"
	"time"
)

// PtyHandle abstracts the master side of a pseudo-terminal.
// The handle must support read deadlines so the output reader can poll with a
// short timeout instead of blocking indefinitely.
type PtyHandle interface {
	io.ReadWriteCloser

	// Resize changes the PTY window size.
	Resize(cols, rows uint16) error

	// SetReadDeadline bounds the next Read. A zero time clears the deadline.
	SetReadDeadline(t time.Time) error
}
