// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool

import (
	"testing"
	"time"
)

// TestFuture_ValueBeforeReady tests that an unset future reports the zero value.
func TestFuture_ValueBeforeReady(t *testing.T) {
	f := newFuture[int]()
	if f.Ready() {
		t.Fatal("new future should not be ready")
	}
	if got := f.Value(); got != 0 {
		t.Errorf("Value() before ready = %d, want 0", got)
	}
	select {
	case <-f.Done():
		t.Fatal("Done() should not be closed before set")
	default:
	}
}

// TestFuture_Set tests publishing a value.
func TestFuture_Set(t *testing.T) {
	f := newFuture[string]()
	f.set("hello")
	if !f.Ready() {
		t.Fatal("future should be ready after set")
	}
	if got := f.Value(); got != "hello" {
		t.Errorf("Value() = %q, want %q", got, "hello")
	}
	if got := f.Wait(); got != "hello" {
		t.Errorf("Wait() = %q, want %q", got, "hello")
	}
}

// TestFuture_WaitAcrossGoroutines tests that Wait observes a value set by another goroutine.
func TestFuture_WaitAcrossGoroutines(t *testing.T) {
	f := newFuture[[]int]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.set([]int{1, 2, 3})
	}()
	got := f.Wait()
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("Wait() = %v, want [1 2 3]", got)
	}
	if !f.Ready() {
		t.Error("future should be ready after Wait returns")
	}
}
