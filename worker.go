// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// worker is a single execution goroutine owning a private FIFO task queue.
type worker struct {
	pool  *Pool  // Reference to the owning pool (options and logger)
	name  string // Human-readable name for the worker
	index int    // Position in the pool's worker slice

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Task // Pending tasks; the head stays queued while it runs
	enabled   bool   // Cleared by stop
	accepting bool   // Cleared when the run loop exits

	initCh chan error    // Signals initialization completion
	done   chan struct{} // Closed when the goroutine exits

	lastUsedNano int64  // Timestamp of last task completion (atomic, nanoseconds)
	executed     uint64 // Number of tasks executed by this worker (atomic)
}

// newWorker creates a new worker instance. The goroutine is started by run.
func newWorker(p *Pool, name string, index int) *worker {
	w := &worker{
		pool:         p,
		name:         name,
		index:        index,
		enabled:      true,
		accepting:    true,
		initCh:       make(chan error, 1),
		done:         make(chan struct{}),
		lastUsedNano: time.Now().UnixNano(),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// getExecuted returns the number of tasks executed by this worker (thread-safe).
func (w *worker) getExecuted() uint64 {
	return atomic.LoadUint64(&w.executed)
}

// getLastUsed returns the timestamp of the last task completion (thread-safe).
func (w *worker) getLastUsed() time.Time {
	return time.Unix(0, atomic.LoadInt64(&w.lastUsedNano))
}

// enqueue appends task to the tail of the queue and wakes the run loop.
// It returns false only when the run loop has already exited.
func (w *worker) enqueue(task Task) bool {
	w.mu.Lock()
	if !w.accepting {
		w.mu.Unlock()
		return false
	}
	w.queue = append(w.queue, task)
	w.mu.Unlock()
	w.cond.Signal()
	return true
}

// queueDepth returns the number of queued tasks, including the running one.
// The value is a scheduling hint and may be stale on return.
func (w *worker) queueDepth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// isIdle reports whether the queue is empty. Same staleness caveat as queueDepth.
func (w *worker) isIdle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue) == 0
}

// initialize runs the configured worker init hook, if any.
func (w *worker) initialize() error {
	if w.pool.options.workerInit == nil {
		return nil
	}
	if err := w.pool.options.workerInit(w.index); err != nil {
		return fmt.Errorf("worker init hook: %w", err)
	}
	return nil
}

// run is the main worker loop. It must be started in its own goroutine.
func (w *worker) run() {
	defer close(w.done)

	if w.pool.options.lockOSThread {
		// Keep the worker and anything its init hook set up on one OS thread
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	if err := w.initialize(); err != nil {
		if w.pool.logger != nil {
			w.pool.logger.Error("Failed to initialize worker",
				"worker", w.name,
				"error", err,
			)
		}
		w.mu.Lock()
		w.accepting = false
		w.mu.Unlock()
		w.initCh <- err
		close(w.initCh)
		return
	}
	w.initCh <- nil
	close(w.initCh)

	w.mu.Lock()
	for {
		for len(w.queue) == 0 && w.enabled {
			w.cond.Wait()
		}
		for len(w.queue) > 0 {
			task := w.queue[0]
			w.mu.Unlock()
			w.executeTask(task)
			w.mu.Lock()
			w.queue[0] = nil
			w.queue = w.queue[1:]
		}
		if !w.enabled {
			break
		}
	}
	w.accepting = false
	w.queue = nil
	w.mu.Unlock()

	if logger := w.pool.logger; logger != nil {
		logger.Debug("Worker exited",
			"worker", w.name,
			"executed", w.getExecuted(),
		)
	}
}

// executeTask runs a single task without holding the worker lock.
// A panicking task is logged and re-raised: task faults are fatal.
func (w *worker) executeTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			if logger := w.pool.logger; logger != nil {
				logger.Error("Task execution panic",
					"worker", w.name,
					"executed", w.getExecuted(),
					"error", r,
				)
			}
			panic(r)
		}
	}()

	task()

	atomic.StoreInt64(&w.lastUsedNano, time.Now().UnixNano())
	atomic.AddUint64(&w.executed, 1)
}

// stop disables the worker, wakes the run loop and waits for it to drain and exit.
// There is no timeout: a task that never returns blocks stop forever.
func (w *worker) stop() {
	w.mu.Lock()
	w.enabled = false
	w.mu.Unlock()
	w.cond.Broadcast()
	<-w.done
}
