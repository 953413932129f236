// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// errNilTask is the panic value for a nil task passed to a Submit function.
var errNilTask = errors.New("fixedpool: nil task submitted")

// Pool is a fixed set of workers, each with its own FIFO queue.
// New tasks go to the first idle worker, or else to the least loaded one.
type Pool struct {
	options *PoolOption  // Configuration options
	workers []*worker    // Fixed after New
	logger  *slog.Logger // Logger instance

	closeOnce sync.Once
}

// WorkerStats is a point-in-time view of a single worker.
type WorkerStats struct {
	Name       string    // Worker name
	QueueDepth int       // Queued tasks, including the running one
	Executed   uint64    // Tasks completed so far
	LastUsed   time.Time // Time of the last task completion
}

// New creates a pool with size workers and starts them.
// A size of zero or less is coerced to one. If any worker fails to
// initialize, the started workers are stopped and an error is returned.
func New(size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		size = 1
	}

	p := &Pool{
		logger: slog.Default(), // Default logger
		options: &PoolOption{
			name: "worker",
		},
	}

	// Apply configuration options
	for _, opt := range opts {
		opt(p)
	}

	p.workers = make([]*worker, 0, size)
	for i := 0; i < size; i++ {
		w := newWorker(p, p.options.name+"-"+strconv.Itoa(i+1), i)
		go w.run()

		// Wait for the worker to finish initialization
		if err := <-w.initCh; err != nil {
			p.stopWorkers()
			return nil, fmt.Errorf("failed to start worker %d: %w", i, err)
		}
		p.workers = append(p.workers, w)
	}

	if p.logger != nil {
		p.logger.Debug("Worker pool started",
			"name", p.options.name,
			"workers", len(p.workers),
			"lockOSThread", p.options.lockOSThread,
		)
	}
	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// selectWorker picks the first idle worker in index order, or else the one
// with the smallest observed queue depth.
//
// The idle and depth checks are separate, unsynchronized reads against queues
// that other submitters may be changing, so the result is only approximately
// balanced under concurrent submission.
func (p *Pool) selectWorker() *worker {
	var (
		selected *worker
		minDepth int
	)
	for _, w := range p.workers {
		if w.isIdle() {
			return w
		}
		if depth := w.queueDepth(); selected == nil || depth < minDepth {
			selected = w
			minDepth = depth
		}
	}
	return selected
}

// Submit schedules task for execution and returns immediately.
// task must not be nil.
func (p *Pool) Submit(task Task) {
	if task == nil {
		panic(errNilTask)
	}
	p.dispatch(p.selectWorker(), task)
}

// SubmitIndexed schedules task and passes it the index of the worker that
// runs it, so tasks can use state owned by that worker.
// task must not be nil.
func (p *Pool) SubmitIndexed(task func(index int)) {
	if task == nil {
		panic(errNilTask)
	}
	w := p.selectWorker()
	p.dispatch(w, func() { task(w.index) })
}

func (p *Pool) dispatch(w *worker, task Task) {
	if !w.enqueue(task) && p.logger != nil {
		p.logger.Warn("Task submitted to closed pool was dropped",
			"worker", w.name,
		)
	}
}

// Submit1 binds a by value and schedules fn(a).
func Submit1[A any](p *Pool, fn func(A), a A) {
	if fn == nil {
		panic(errNilTask)
	}
	p.Submit(bind1(fn, a))
}

// Submit2 binds a and b by value and schedules fn(a, b).
func Submit2[A, B any](p *Pool, fn func(A, B), a A, b B) {
	if fn == nil {
		panic(errNilTask)
	}
	p.Submit(bind2(fn, a, b))
}

// SubmitWithResult schedules fn and returns a Future receiving its result.
// It does not block.
func SubmitWithResult[R any](p *Pool, fn func() R) *Future[R] {
	if fn == nil {
		panic(errNilTask)
	}
	f := newFuture[R]()
	p.Submit(produce(fn, f))
	return f
}

// SubmitWithResult1 binds a by value and schedules fn(a).
func SubmitWithResult1[A, R any](p *Pool, fn func(A) R, a A) *Future[R] {
	if fn == nil {
		panic(errNilTask)
	}
	return SubmitWithResult(p, func() R { return fn(a) })
}

// SubmitWithResult2 binds a and b by value and schedules fn(a, b).
func SubmitWithResult2[A, B, R any](p *Pool, fn func(A, B) R, a A, b B) *Future[R] {
	if fn == nil {
		panic(errNilTask)
	}
	return SubmitWithResult(p, func() R { return fn(a, b) })
}

// SubmitIndexedWithResult is SubmitIndexed returning a Future for fn's result.
func SubmitIndexedWithResult[R any](p *Pool, fn func(index int) R) *Future[R] {
	if fn == nil {
		panic(errNilTask)
	}
	f := newFuture[R]()
	p.SubmitIndexed(func(index int) {
		f.set(fn(index))
	})
	return f
}

// Stats returns a snapshot of every worker, in index order.
func (p *Pool) Stats() []WorkerStats {
	stats := make([]WorkerStats, 0, len(p.workers))
	for _, w := range p.workers {
		stats = append(stats, WorkerStats{
			Name:       w.name,
			QueueDepth: w.queueDepth(),
			Executed:   w.getExecuted(),
			LastUsed:   w.getLastUsed(),
		})
	}
	return stats
}

// Close stops every worker in order. Each worker runs the tasks already in
// its queue before exiting. Close blocks until all workers have exited and
// has no timeout. Calling Close more than once is a no-op.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.stopWorkers()
		if p.logger != nil {
			p.logger.Debug("Worker pool stopped", "name", p.options.name)
		}
	})
	return nil
}

func (p *Pool) stopWorkers() {
	for _, w := range p.workers {
		w.stop()
	}
}
