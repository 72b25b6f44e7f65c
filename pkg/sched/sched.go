// Package sched bounds the number of concurrently in-flight work units.
//
// It exists purely to cap resource usage on very large trees. Classification
// is order-independent, so the scheduler makes no ordering promises.
package sched

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Scheduler runs fire-and-forget work units under a concurrency bound.
// Schedule blocks only while the bound is saturated; Shutdown drains.
type Scheduler struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	closed atomic.Bool
}

// DefaultWorkers derives the concurrency bound from available hardware
// parallelism.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// New creates a scheduler allowing up to 'workers' units in flight.
// Values <= 0 use DefaultWorkers.
func New(workers int) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Scheduler{
		sem: semaphore.NewWeighted(int64(workers)),
	}
}

// Schedule submits a unit of work. It blocks while the bound is saturated
// and returns once the unit is queued on its own goroutine. Units submitted
// after Shutdown are dropped.
func (s *Scheduler) Schedule(unit func()) {
	if s.closed.Load() {
		return
	}

	// Acquire with a background context cannot fail.
	_ = s.sem.Acquire(context.Background(), 1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		unit()
	}()
}

// Shutdown stops accepting new units and blocks until all in-flight units
// have completed. It is idempotent; every call waits for the drain.
func (s *Scheduler) Shutdown() {
	s.closed.Store(true)
	s.wg.Wait()
}
