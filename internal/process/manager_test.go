package process

import (
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-gatedio"
	"github.com/hashicorp/go-hclog"
)

func newManager() *Manager {
	return NewManager(hclog.Default())
}

func TestExecSimple(t *testing.T) {
	mgr := newManager()

	out := gatedio.NewByteBuffer()
	cmd := exec.Command("env")
	cmd.Stdout = out

	if err := mgr.Exec(cmd); err != nil {
		t.Errorf("expected nil, got %q", err)
	}
	if out.String() == "" {
		t.Error("expected output from running 'env', got empty string")
	}
}

func TestClose(t *testing.T) {
	mgr := newManager()

	var wg sync.WaitGroup
	tasks := 4
	errs := make([]error, tasks)
	start := time.Now()
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			if err := mgr.Exec(exec.Command("sleep", "0.5")); err != nil {
				errs[index] = err
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	mgr.Close()
	duration := time.Since(start)
	wg.Wait()
	if duration >= 500*time.Millisecond {
		t.Errorf("expected Close to cut the sleep short, total time was %q", duration)
	}
	for _, err := range errs {
		if err != ErrClosing {
			t.Errorf("expected ErrClosing, got %q", err)
		}
	}
}

func TestCloseAlreadyClosed(t *testing.T) {
	mgr := newManager()
	mgr.Close()
	mgr.Close()

	if err := mgr.Exec(exec.Command("sleep", "1")); err != ErrClosing {
		t.Errorf("expected ErrClosing, got %q", err)
	}
}

func TestExitCode(t *testing.T) {
	mgr := newManager()

	err := mgr.Exec(exec.Command("ls", "doesnotexist"))
	var exitErr *ChildExit
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected a *ChildExit, got %q", err)
	}
	if exitErr.ExitCode == 0 {
		t.Error("expected a non-zero exit code, got 0")
	}
}
