// Package parallel provides the fixed worker pool and the reusable
// completion barrier the solver fans its phases out through.
package parallel

import (
	"runtime"
	"sync"
)

// Job is a unit of work executed by a pool worker. Jobs must not panic:
// a panic escaping a job terminates the process.
type Job func()

// Executor accepts jobs for asynchronous execution.
type Executor interface {
	Enqueue(job Job)
}

// PoolConfig configures the thread pool.
type PoolConfig struct {
	// Workers is the number of worker goroutines.
	// Default: runtime.NumCPU()
	Workers int
}

// DefaultPoolConfig returns a config sized to the host's hardware concurrency.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Workers: runtime.NumCPU()}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.Workers = n
	return c
}

// ThreadPool is a fixed set of workers consuming a shared FIFO queue.
// Workers start at construction and stop on Close; the size never changes.
type ThreadPool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Job
	head      int
	terminate bool
	size      int
	wg        sync.WaitGroup
}

// NewThreadPool starts a pool with the configured number of workers.
func NewThreadPool(config PoolConfig) *ThreadPool {
	if config.Workers <= 0 {
		config.Workers = DefaultPoolConfig().Workers
	}

	p := &ThreadPool{
		size:  config.Workers,
		queue: make([]Job, 0, config.Workers*2),
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.loop()
	}
	return p
}

// Size returns the number of workers.
func (p *ThreadPool) Size() int {
	return p.size
}

// Enqueue appends job to the queue and wakes one idle worker.
// Enqueueing on a closed pool panics.
func (p *ThreadPool) Enqueue(job Job) {
	p.mu.Lock()
	if p.terminate {
		p.mu.Unlock()
		panic("parallel: enqueue on closed pool")
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()
}

// Close stops all workers and waits for them to exit. Jobs still queued are
// dropped, so no Barrier may be waiting on this pool when it is closed.
// Close is idempotent.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	if p.terminate {
		p.mu.Unlock()
		return
	}
	p.terminate = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *ThreadPool) loop() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.head == len(p.queue) && !p.terminate {
			p.cond.Wait()
		}
		if p.terminate {
			p.mu.Unlock()
			return
		}
		job := p.pop()
		p.mu.Unlock()

		job()
	}
}

// pop removes the queue head. The backing array is reused once drained so
// steady-state enqueues do not allocate. Caller holds p.mu.
func (p *ThreadPool) pop() Job {
	job := p.queue[p.head]
	p.queue[p.head] = nil
	p.head++
	if p.head == len(p.queue) {
		p.queue = p.queue[:0]
		p.head = 0
	}
	return job
}

// InlineExecutor runs each job synchronously on the caller's goroutine.
type InlineExecutor struct{}

// Enqueue runs job immediately.
func (InlineExecutor) Enqueue(job Job) {
	job()
}
