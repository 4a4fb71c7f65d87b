package util

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore bounds how many task graph walkers may run at once. A zero
// or negative limit means unlimited: Acquire always succeeds immediately.
type Semaphore struct {
	sem *semaphore.Weighted
}

// NewSemaphore returns a Semaphore allowing up to limit concurrent
// holders. limit <= 0 means unbounded.
func NewSemaphore(limit int) *Semaphore {
	if limit <= 0 {
		return &Semaphore{}
	}
	return &Semaphore{sem: semaphore.NewWeighted(int64(limit))}
}

// Acquire blocks until a slot is available.
func (s *Semaphore) Acquire() {
	if s.sem == nil {
		return
	}
	// A background context is fine here: this semaphore only ever gates
	// task-graph concurrency, never cancellation.
	_ = s.sem.Acquire(context.Background(), 1)
}

// Release frees a slot acquired by Acquire.
func (s *Semaphore) Release() {
	if s.sem == nil {
		return
	}
	s.sem.Release(1)
}
