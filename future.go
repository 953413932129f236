// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool

import "sync/atomic"

// Future holds the result of a task submitted with SubmitWithResult.
//
// A Future is written exactly once by the worker running the task and read by
// the submitter. The value is stored before the ready flag is published, so a
// reader that observes Ready() == true always sees the final value.
type Future[T any] struct {
	value T
	ready atomic.Bool
	done  chan struct{}
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// set publishes v. It must be called at most once.
func (f *Future[T]) set(v T) {
	f.value = v
	f.ready.Store(true)
	close(f.done)
}

// Ready reports whether the task has produced its value.
func (f *Future[T]) Ready() bool {
	return f.ready.Load()
}

// Value returns the produced value, or the zero value of T if the task has
// not completed yet. It never blocks.
func (f *Future[T]) Value() T {
	if !f.ready.Load() {
		var zero T
		return zero
	}
	return f.value
}

// Done returns a channel that is closed once the value is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the value is available and returns it.
// There is no timeout; select on Done to bound the wait.
func (f *Future[T]) Wait() T {
	<-f.done
	return f.value
}
