package terminal

import (
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	v1 "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/pkg/api/v1"
)

// StartReader launches the output pump goroutine. It polls the PTY with a
// short read deadline so child exit is noticed promptly even when the process
// produces no output, and forwards each chunk to the client as it arrives.
func (s *Session) StartReader() {
	if !s.readerStarted.CompareAndSwap(false, true) {
		return
	}
	go s.readLoop()
}

func (s *Session) readLoop() {
	defer close(s.readerDone)

	size := s.timings.ChunkSize
	if size <= 0 {
		size = 4096
	}
	buf := make([]byte, size)
	for {
		_ = s.pty.SetReadDeadline(time.Now().Add(s.timings.PollInterval))
		n, err := s.pty.Read(buf)

		if n > 0 {
			// PTY reads can split multi-byte sequences; replace the
			// stragglers rather than dropping the chunk.
			data := strings.ToValidUTF8(string(buf[:n]), "�")
			if sendErr := s.sender.Send(v1.NewOutput(data)); sendErr != nil {
				// Nothing drains the PTY from here on, so the session
				// must not keep reporting itself as running. The final
				// status send would fail on the same broken sender.
				s.log.Debug("client send failed, stopping reader", zap.Error(sendErr))
				s.running.Store(false)
				return
			}
		}

		if err != nil {
			if os.IsTimeout(err) {
				if s.exited() {
					s.finishReader()
					return
				}
				time.Sleep(s.timings.IdleSleep)
				continue
			}
			// EIO is the normal PTY close signal on Linux.
			if errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
				s.finishReader()
				return
			}
			s.log.Warn("pty read failed", zap.Error(err))
			s.finishReader()
			return
		}

		// A zero-length read with no error means the descriptor hit EOF.
		if n == 0 {
			s.finishReader()
			return
		}
	}
}

// finishReader tells the client the process is gone. Best effort; the
// connection may already be down.
func (s *Session) finishReader() {
	s.running.Store(false)
	msg := v1.NewStatus(v1.SessionStatusEnded, s.ID, s.Agent)
	running := false
	msg.Running = &running
	_ = s.sender.Send(msg)
}
