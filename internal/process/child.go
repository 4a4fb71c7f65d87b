package process

/**
 * Code in this file is based on the source code at
 * https://github.com/hashicorp/consul-template/tree/3ea7d99ad8eff17897e0d63dac86d74770170bb8/child/child.go
 *
 * Major changes include removing the ability to restart a child process,
 * requiring a fully-formed exec.Cmd to be passed in, and including cmd.Dir
 * in the description of a child process.
 */

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

var (
	// ErrMissingCommand is returned when no command is specified to run.
	ErrMissingCommand = errors.New("missing command")

	// ExitCodeOK is the exit code reported for a clean exit.
	ExitCodeOK = 0

	// ExitCodeError is the fallback exit code when a command fails
	// without reporting a more specific status.
	ExitCodeError = 127
)

// Child wraps a spawned task process, exposing the lifecycle operations
// the runcache/executor layer needs: signaling, graceful-then-forced
// kill, and an exit channel.
type Child struct {
	sync.RWMutex

	timeout time.Duration

	killSignal  os.Signal
	killTimeout time.Duration

	splay time.Duration

	cmd *exec.Cmd

	exitCh chan int

	stopLock sync.RWMutex
	stopCh   chan struct{}
	stopped  bool

	// setpgid controls whether the child starts its own process group,
	// so a signal sent to it also reaches anything it spawned.
	setpgid bool

	Label string

	logger hclog.Logger
}

// NewInput configures newChild.
type NewInput struct {
	// Cmd is the unstarted, preconfigured command to run.
	Cmd *exec.Cmd

	// Timeout bounds how long the command may run; zero means no bound.
	Timeout time.Duration

	// KillSignal is sent first, to request a graceful stop.
	KillSignal os.Signal

	// KillTimeout bounds how long to wait after KillSignal before
	// escalating to a forced kill.
	KillTimeout time.Duration

	// Splay staggers the kill signal across a random window up to this
	// duration, so many children stopping at once don't all signal in
	// the same instant.
	Splay time.Duration

	Logger hclog.Logger
}

func newChild(i NewInput) (*Child, error) {
	label := fmt.Sprintf("(%v) %v", i.Cmd.Dir, strings.Join(i.Cmd.Args, " "))
	child := &Child{
		cmd:         i.Cmd,
		timeout:     i.Timeout,
		killSignal:  i.KillSignal,
		killTimeout: i.KillTimeout,
		splay:       i.Splay,
		stopCh:      make(chan struct{}, 1),
		setpgid:     true,
		Label:       label,
		logger:      i.Logger.Named(label),
	}
	return child, nil
}

// ExitCh returns the channel the exit code is delivered on. The value
// must not be cached across restarts (this package has none, but the
// channel is still swapped out on every Start).
func (c *Child) ExitCh() <-chan int {
	c.RLock()
	defer c.RUnlock()
	return c.exitCh
}

// Pid returns the child's pid, or 0 if it isn't running.
func (c *Child) Pid() int {
	c.RLock()
	defer c.RUnlock()
	return c.pid()
}

// Command returns the human-readable command and arguments.
func (c *Child) Command() string {
	return c.Label
}

// Start begins execution. Errors returned here happened before or
// during process start; errors after that point surface as a non-zero
// value on ExitCh.
func (c *Child) Start() error {
	c.Lock()
	defer c.Unlock()
	return c.start()
}

// Signal delivers s to the child (or its process group, if setpgid).
func (c *Child) Signal(s os.Signal) error {
	c.logger.Debug("received signal", "signal", s.String())
	c.RLock()
	defer c.RUnlock()
	return c.signal(s)
}

// Kill sends the configured kill signal and blocks until the process is
// dead, escalating to a forced kill after KillTimeout or if no
// KillSignal was configured. This function never returns an error: it
// guarantees the process is gone by the time it returns.
func (c *Child) Kill() {
	c.logger.Debug("killing process")
	c.Lock()
	defer c.Unlock()
	c.kill(false)
}

// Stop is like Kill but also marks the child stopped, so later Start
// calls are refused and the exit code is never delivered on ExitCh.
func (c *Child) Stop() {
	c.internalStop(false)
}

// StopImmediately is Stop without waiting for the configured splay.
func (c *Child) StopImmediately() {
	c.internalStop(true)
}

func (c *Child) internalStop(immediately bool) {
	c.Lock()
	defer c.Unlock()

	c.stopLock.Lock()
	defer c.stopLock.Unlock()
	if c.stopped {
		return
	}
	c.kill(immediately)
	close(c.stopCh)
	c.stopped = true
}

func (c *Child) start() error {
	setSetpgid(c.cmd, c.setpgid)
	if err := c.cmd.Start(); err != nil {
		return err
	}

	exitCh := make(chan int, 1)
	go func() {
		var code int
		c.RLock()
		cmd := c.cmd
		c.RUnlock()
		var err error
		if cmd != nil {
			err = cmd.Wait()
		}
		if err == nil {
			code = ExitCodeOK
		} else {
			code = ExitCodeError
			if exiterr, ok := err.(*exec.ExitError); ok {
				if status, ok := exiterr.Sys().(syscall.WaitStatus); ok {
					code = status.ExitStatus()
				}
			}
		}

		c.stopLock.RLock()
		defer c.stopLock.RUnlock()
		if !c.stopped {
			select {
			case <-c.stopCh:
			case exitCh <- code:
			}
		}

		close(exitCh)
	}()

	c.exitCh = exitCh

	if c.timeout != 0 {
		select {
		case code := <-exitCh:
			if code != 0 {
				return fmt.Errorf("command exited with a non-zero exit status: %s", c.Command())
			}
		case <-time.After(c.timeout):
			c.stopLock.Lock()
			defer c.stopLock.Unlock()
			if c.cmd != nil && c.cmd.Process != nil {
				_ = c.cmd.Process.Kill()
			}
			return fmt.Errorf("command did not exit within %s: %s", c.timeout, c.Command())
		}
	}

	return nil
}

func (c *Child) pid() int {
	if !c.running() {
		return 0
	}
	return c.cmd.Process.Pid
}

func (c *Child) signal(s os.Signal) error {
	if !c.running() {
		return nil
	}

	sig, ok := s.(syscall.Signal)
	if !ok {
		return fmt.Errorf("bad signal: %s", s)
	}
	pid := c.cmd.Process.Pid
	if c.setpgid {
		// A negative pid tells kill(2) to target the whole process group.
		pid = -pid
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

func (c *Child) kill(immediately bool) {
	if !c.running() {
		c.logger.Debug("kill called but process already dead")
		return
	} else if immediately {
		c.logger.Debug("kill called with immediate shutdown, skipping splay")
	} else {
		select {
		case <-c.stopCh:
		case <-c.randomSplay():
		}
	}

	var exited bool
	defer func() {
		if !exited {
			c.logger.Debug("force-killing process")
			_ = c.cmd.Process.Kill()
		}
		c.cmd = nil
	}()

	if c.killSignal == nil {
		return
	}

	if err := c.signal(c.killSignal); err != nil {
		c.logger.Debug("signal failed", "error", err)
		if processNotFoundErr(err) {
			exited = true
		}
		return
	}

	killCh := make(chan struct{}, 1)
	go func() {
		defer close(killCh)
		_, _ = c.cmd.Process.Wait()
	}()

	select {
	case <-c.stopCh:
	case <-killCh:
		exited = true
	case <-time.After(c.killTimeout):
		c.logger.Debug("kill timeout elapsed, escalating")
	}
}

func (c *Child) running() bool {
	select {
	case <-c.exitCh:
		return false
	default:
	}
	return c.cmd != nil && c.cmd.Process != nil
}

func (c *Child) randomSplay() <-chan time.Time {
	if c.splay == 0 {
		return time.After(0)
	}
	ns := c.splay.Nanoseconds()
	offset := rand.Int63n(ns)
	t := time.Duration(offset)
	c.logger.Debug("waiting for splay", "duration", t)
	return time.After(t)
}
