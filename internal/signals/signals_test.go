package signals

import (
	"testing"
	"time"
)

func TestWatcherCloseRunsClosersOnce(t *testing.T) {
	w := &Watcher{doneCh: make(chan struct{})}

	var calls int
	w.AddOnClose(func() { calls++ })
	w.AddOnClose(func() { calls++ })

	w.Close()
	w.Close()

	if calls != 2 {
		t.Errorf("closers got %v total calls, want 2 (each closer runs exactly once across repeated Close calls)", calls)
	}

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() channel was not closed")
	}
}

func TestWatcherDoneBlocksUntilClose(t *testing.T) {
	w := &Watcher{doneCh: make(chan struct{})}

	select {
	case <-w.Done():
		t.Fatal("Done() should not be closed before Close is called")
	default:
	}

	w.Close()

	select {
	case <-w.Done():
	default:
		t.Fatal("Done() should be closed immediately after Close")
	}
}
