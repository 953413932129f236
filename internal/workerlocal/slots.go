// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

// Package workerlocal keeps one value per pool worker, such as a script
// runtime that must only be touched from the worker's own OS thread.
package workerlocal

import (
	"fmt"
	"sync/atomic"
)

type slot[T any] struct {
	value      T
	generation uint64
	ok         bool
}

// Slots holds a value per worker index. Slot i must only be used from
// worker i: Init from the pool's worker init hook, Get from tasks that
// received index i.
type Slots[T any] struct {
	build      func(index int) (T, error)
	release    func(T)
	generation atomic.Uint64
	slots      []slot[T]
}

// New creates n empty slots. build creates a value for a worker; release,
// if not nil, frees a value that is replaced or closed.
func New[T any](n int, build func(index int) (T, error), release func(T)) *Slots[T] {
	return &Slots[T]{
		build:   build,
		release: release,
		slots:   make([]slot[T], n),
	}
}

// Len returns the number of slots.
func (s *Slots[T]) Len() int {
	return len(s.slots)
}

// Init builds the value of slot index. It fits fixedpool.WithWorkerInit.
func (s *Slots[T]) Init(index int) error {
	if index < 0 || index >= len(s.slots) {
		return fmt.Errorf("no slot for worker %d", index)
	}
	s.drop(index)

	generation := s.generation.Load()
	v, err := s.build(index)
	if err != nil {
		return err
	}
	s.slots[index] = slot[T]{value: v, generation: generation, ok: true}
	return nil
}

// Get returns the value of slot index, rebuilding it first if it is missing
// or older than the last Invalidate.
func (s *Slots[T]) Get(index int) (T, error) {
	if index < 0 || index >= len(s.slots) {
		var zero T
		return zero, fmt.Errorf("no slot for worker %d", index)
	}
	if sl := s.slots[index]; sl.ok && sl.generation == s.generation.Load() {
		return sl.value, nil
	}
	if err := s.Init(index); err != nil {
		var zero T
		return zero, err
	}
	return s.slots[index].value, nil
}

// Invalidate marks every slot stale. Each one is rebuilt by its worker on
// the next Get. Safe to call from any goroutine.
func (s *Slots[T]) Invalidate() {
	s.generation.Add(1)
}

// Close releases every value. The workers must have stopped.
func (s *Slots[T]) Close() {
	for i := range s.slots {
		s.drop(i)
	}
}

func (s *Slots[T]) drop(index int) {
	sl := s.slots[index]
	s.slots[index] = slot[T]{}
	if sl.ok && s.release != nil {
		s.release(sl.value)
	}
}
