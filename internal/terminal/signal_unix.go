//go:build !windows

package terminal

import (
	"os"
	"syscall"
)

// terminateProcess sends SIGTERM to the process for graceful shutdown.
func terminateProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// killProcess sends SIGKILL to the process.
func killProcess(p *os.Process) error {
	return p.Signal(syscall.SIGKILL)
}

// signalProcess delivers an arbitrary signal number to the process.
func signalProcess(p *os.Process, sig int) error {
	return p.Signal(syscall.Signal(sig))
}

// DefaultSignal is the signal delivered when a client signal message carries
// no explicit number. Matches what a terminal interrupt would deliver.
const DefaultSignal = int(syscall.SIGINT)
