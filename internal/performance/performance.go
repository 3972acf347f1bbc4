// Package performance provides concurrency helpers for fanning out
// slow broker calls.
package performance

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs queued tasks on a fixed set of goroutines. Submit may
// be called from multiple goroutines, but not concurrently with Stop.
type WorkerPool struct {
	workers int
	tasks   chan func()
	wg      sync.WaitGroup
	started atomic.Bool
	stopped atomic.Bool

	submitted atomic.Uint64
	done      atomic.Uint64
}

// NewWorkerPool creates a pool. A non-positive worker count defaults to
// the number of CPUs.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers: workers,
		tasks:   make(chan func(), workers*2),
	}
}

// Start launches the workers. Calling Start again is a no-op.
func (p *WorkerPool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
		p.done.Add(1)
	}
}

// Submit queues a task, blocking while all workers are busy and the
// queue is full. It reports false when the task was dropped because the
// pool is not running.
func (p *WorkerPool) Submit(task func()) bool {
	if task == nil || !p.started.Load() || p.stopped.Load() {
		return false
	}
	p.tasks <- task
	p.submitted.Add(1)
	return true
}

// SubmitWait queues a task and blocks until it has run.
func (p *WorkerPool) SubmitWait(task func()) bool {
	done := make(chan struct{})
	if !p.Submit(func() {
		task()
		close(done)
	}) {
		return false
	}
	<-done
	return true
}

// Stop closes the queue, runs the remaining tasks and waits for all
// workers to exit. Safe to call more than once.
func (p *WorkerPool) Stop() {
	if !p.started.Load() || !p.stopped.CompareAndSwap(false, true) {
		return
	}
	close(p.tasks)
	p.wg.Wait()
}

// PoolStats is a point-in-time snapshot of pool activity.
type PoolStats struct {
	Workers   int
	Submitted uint64
	Done      uint64
}

// Stats returns counters for the pool.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:   p.workers,
		Submitted: p.submitted.Load(),
		Done:      p.done.Load(),
	}
}
