package process

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ErrClosing is returned from Exec once the Manager has started
// shutting down: no further child processes may be spawned, and any
// still-running ones are being stopped.
var ErrClosing = errors.New("process manager is already closing")

// ChildExit reports a task process that exited with a non-zero status.
type ChildExit struct {
	ExitCode int
	Command  string
}

func (ce *ChildExit) Error() string {
	return fmt.Sprintf("command %s exited (%d)", ce.Command, ce.ExitCode)
}

// Manager tracks every child process spawned for the run, so a
// cancellation or interrupt can stop all of them together.
type Manager struct {
	done     bool
	children map[*Child]struct{}
	mu       sync.Mutex
	doneCh   chan struct{}
	logger   hclog.Logger
}

// NewManager creates an empty Manager.
func NewManager(logger hclog.Logger) *Manager {
	return &Manager{
		children: make(map[*Child]struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Exec spawns cmd and blocks until it exits. Returns nil on a clean
// exit, ErrClosing if the manager shut down mid-execution, or a
// *ChildExit if the process exited non-zero.
func (m *Manager) Exec(cmd *exec.Cmd) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return ErrClosing
	}

	child, err := newChild(NewInput{
		Cmd:         cmd,
		Timeout:     0,
		KillTimeout: 10 * time.Second,
		KillSignal:  syscall.SIGTERM,
		Logger:      m.logger,
	})
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.children[child] = struct{}{}
	m.mu.Unlock()

	if err := child.Start(); err != nil {
		m.mu.Lock()
		delete(m.children, child)
		m.mu.Unlock()
		return err
	}

	var execErr error
	exitCode, ok := <-child.ExitCh()
	if !ok {
		execErr = ErrClosing
	} else if exitCode != ExitCodeOK {
		execErr = &ChildExit{ExitCode: exitCode, Command: child.Command()}
	}

	m.mu.Lock()
	delete(m.children, child)
	m.mu.Unlock()
	return execErr
}

// Close stops every tracked child process (if it hasn't happened
// already) and blocks until they've all exited.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		<-m.doneCh
		return
	}
	var wg sync.WaitGroup
	m.done = true
	for child := range m.children {
		child := child
		wg.Add(1)
		go func() {
			defer wg.Done()
			child.Stop()
		}()
	}
	m.mu.Unlock()
	wg.Wait()
	close(m.doneCh)
}
