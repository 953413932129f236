// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool

// Task is a unit of deferred work executed by a worker.
// Arguments are bound before submission, so a Task takes and returns nothing.
type Task func()

// bind1 captures a by value and returns a Task calling fn(a).
func bind1[A any](fn func(A), a A) Task {
	return func() { fn(a) }
}

// bind2 captures a and b by value and returns a Task calling fn(a, b).
func bind2[A, B any](fn func(A, B), a A, b B) Task {
	return func() { fn(a, b) }
}

// produce wraps fn so that its return value is published into f.
func produce[R any](fn func() R, f *Future[R]) Task {
	return func() {
		f.set(fn())
	}
}
