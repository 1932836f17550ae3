package parallel

import (
	"sync"
	"sync/atomic"
)

// Barrier runs a fixed, pre-registered set of jobs on an executor and blocks
// until every one of them has finished. It is built once and reused for any
// number of rounds without re-registration or allocation.
//
// Each job's completion happens-before RunAndWait returns, so the caller may
// read everything the jobs wrote without further synchronization.
type Barrier struct {
	wrapped []Job
	wg      sync.WaitGroup
	running atomic.Bool
	rounds  atomic.Int64
}

// NewBarrier registers jobs. The slice is copied.
func NewBarrier(jobs []Job) *Barrier {
	b := &Barrier{wrapped: make([]Job, len(jobs))}
	for i, job := range jobs {
		job := job
		b.wrapped[i] = func() {
			defer b.wg.Done()
			job()
		}
	}
	return b
}

// Len returns the number of registered jobs.
func (b *Barrier) Len() int {
	return len(b.wrapped)
}

// Rounds returns how many times RunAndWait has completed.
func (b *Barrier) Rounds() int64 {
	return b.rounds.Load()
}

// RunAndWait submits every registered job to exec and blocks until all of
// them complete. A Barrier must not be run concurrently with itself.
func (b *Barrier) RunAndWait(exec Executor) {
	if !b.running.CompareAndSwap(false, true) {
		panic("parallel: concurrent RunAndWait on the same barrier")
	}
	defer b.running.Store(false)

	if len(b.wrapped) > 0 {
		// The counter is set in full before the first submit so an early
		// finisher can never drive it to zero while jobs remain unsent.
		b.wg.Add(len(b.wrapped))
		for _, job := range b.wrapped {
			exec.Enqueue(job)
		}
		b.wg.Wait()
	}
	b.rounds.Add(1)
}
