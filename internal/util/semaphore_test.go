package util

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	s := NewSemaphore(2)
	var current, max int32

	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			s.Acquire()
			defer func() {
				atomic.AddInt32(&current, -1)
				s.Release()
				done <- struct{}{}
			}()
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&max)
				if n <= old || atomic.CompareAndSwapInt32(&max, old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	if max > 2 {
		t.Errorf("observed %d concurrent holders, want at most 2", max)
	}
}

func TestSemaphoreUnboundedWhenLimitNonPositive(t *testing.T) {
	s := NewSemaphore(0)
	s.Acquire()
	s.Acquire()
	s.Release()
	s.Release()
}
