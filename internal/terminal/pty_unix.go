//go:build !windows

package terminal

import (
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
)

// unixPTY wraps a Unix PTY master file descriptor.
// The *os.File returned by creack/pty is registered with the runtime poller,
// so reads are non-blocking under the hood and SetReadDeadline works.
type unixPTY struct {
	f *os.File
}

func (p *unixPTY) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *unixPTY) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *unixPTY) Close() error                { return p.f.Close() }

func (p *unixPTY) Resize(cols, rows uint16) error {
	return pty.Setsize(p.f, &pty.Winsize{Cols: cols, Rows: rows})
}

func (p *unixPTY) SetReadDeadline(t time.Time) error {
	return p.f.SetReadDeadline(t)
}

// startPTYWithSize starts the command attached to a Unix PTY with the given
// dimensions. pty.StartWithSize calls cmd.Start internally.
func startPTYWithSize(cmd *exec.Cmd, cols, rows uint16) (PtyHandle, error) {
	f, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: cols,
		Rows: rows,
	})
	if err != nil {
		return nil, err
	}
	return &unixPTY{f: f}, nil
}
