package terminal

import (
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/logger"
	v1 "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/pkg/api/v1"
)

// Sender delivers JSON messages to the client attached to a session.
// Implementations must be safe for concurrent use.
type Sender interface {
	Send(v any) error
}

// Timings groups the tunable durations of the session lifecycle.
type Timings struct {
	PollInterval time.Duration
	IdleSleep    time.Duration
	KillGrace    time.Duration
	ChunkSize    int
}

// Session is one live PTY-backed agent process bound to a client connection.
type Session struct {
	ID        string
	ProjectID string
	Agent     string
	WorkDir   string

	cmd    *exec.Cmd
	pty    PtyHandle
	sender Sender
	log    *logger.Logger

	timings Timings

	mu      sync.Mutex // guards writes and resize
	cols    uint16
	rows    uint16
	running atomic.Bool

	stopOnce      sync.Once
	readerStarted atomic.Bool
	waitDone      chan struct{} // closed when the child has been reaped
	readerDone    chan struct{} // closed when the output reader exits
}

// SpawnOptions carries everything needed to launch a session process.
type SpawnOptions struct {
	SessionID string
	ProjectID string
	Agent     string
	WorkDir   string
	Command   []string
	Env       []string
	Cols      uint16
	Rows      uint16
	Sender    Sender
	Timings   Timings
	Logger    *logger.Logger
}

// Spawn launches the agent process under a PTY and starts the reaper
// goroutine. The output reader is started separately by the caller once the
// client has been told the session is up.
func Spawn(opts SpawnOptions) (*Session, error) {
	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.WorkDir
	cmd.Env = opts.Env

	handle, err := startPTYWithSize(cmd, opts.Cols, opts.Rows)
	if err != nil {
		return nil, fmt.Errorf("starting pty for %s: %w", opts.Agent, err)
	}

	s := &Session{
		ID:         opts.SessionID,
		ProjectID:  opts.ProjectID,
		Agent:      opts.Agent,
		WorkDir:    opts.WorkDir,
		cmd:        cmd,
		pty:        handle,
		sender:     opts.Sender,
		log:        opts.Logger.WithSession(opts.SessionID),
		timings:    opts.Timings,
		cols:       opts.Cols,
		rows:       opts.Rows,
		waitDone:   make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	s.running.Store(true)

	go func() {
		_ = cmd.Wait()
		s.running.Store(false)
		close(s.waitDone)
	}()

	s.log.Info("session started",
		zap.String("agent", opts.Agent),
		zap.Int("pid", cmd.Process.Pid),
		zap.String("workdir", opts.WorkDir))
	return s, nil
}

// Running reports whether the child process is still alive.
func (s *Session) Running() bool {
	return s.running.Load()
}

// exited returns true once the child has been reaped.
func (s *Session) exited() bool {
	select {
	case <-s.waitDone:
		return true
	default:
		return false
	}
}

// WriteInput forwards raw keystrokes to the PTY.
func (s *Session) WriteInput(data string) error {
	if !s.Running() {
		return fmt.Errorf("session %s: process has exited", s.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.pty.Write([]byte(data))
	return err
}

// SendCommand writes a full command line followed by a newline, as if the
// user typed it and pressed enter.
func (s *Session) SendCommand(command string) error {
	return s.WriteInput(command + "\n")
}

// Resize applies new terminal dimensions to the PTY.
func (s *Session) Resize(cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return fmt.Errorf("session %s: invalid size %dx%d", s.ID, cols, rows)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pty.Resize(cols, rows); err != nil {
		return err
	}
	s.cols, s.rows = cols, rows
	return nil
}

// Size returns the current terminal dimensions.
func (s *Session) Size() (cols, rows uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Interrupt sends Ctrl-C through the PTY so the foreground process group
// receives SIGINT from the line discipline.
func (s *Session) Interrupt() error {
	return s.WriteInput("\x03")
}

// Signal delivers an arbitrary signal number to the child process.
func (s *Session) Signal(sig int) error {
	if !s.Running() {
		return fmt.Errorf("session %s: process has exited", s.ID)
	}
	return signalProcess(s.cmd.Process, sig)
}

// Close tears the session down: SIGTERM, a short grace period, then SIGKILL
// if the child has not exited. Safe to call multiple times; later calls are
// no-ops and all calls return after the first teardown completes.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		if s.cmd.Process != nil && !s.exited() {
			_ = terminateProcess(s.cmd.Process)
			select {
			case <-s.waitDone:
			case <-time.After(s.timings.KillGrace):
				_ = killProcess(s.cmd.Process)
				<-s.waitDone
			}
		}
		_ = s.pty.Close()
		if s.readerStarted.Load() {
			<-s.readerDone
		}
		s.log.Info("session closed", zap.String("agent", s.Agent))
	})
}

// Summary returns the REST listing view of the session.
func (s *Session) Summary() v1.SessionSummary {
	cols, rows := s.Size()
	return v1.SessionSummary{
		SessionID: s.ID,
		ProjectID: s.ProjectID,
		Agent:     s.Agent,
		Running:   s.Running(),
		Cols:      int(cols),
		Rows:      int(rows),
	}
}
