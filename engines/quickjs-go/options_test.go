// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package quickjsengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithGCThreshold(t *testing.T) {
	o := &EngineOption{}

	require.NoError(t, WithGCThreshold(1024)(o))
	require.Equal(t, int64(1024), o.GCThreshold)

	// Disable automatic GC
	require.NoError(t, WithGCThreshold(-1)(o))
	require.Equal(t, int64(-1), o.GCThreshold)

	// Invalid value
	require.Error(t, WithGCThreshold(-2)(o))
}

func TestWithMemoryLimit(t *testing.T) {
	e, err := NewEngine(WithMemoryLimit(1024 * 1024))
	require.NoError(t, err)
	require.Equal(t, uint64(1024*1024), e.Option.MemoryLimit)

	// 0 = no limit
	require.NoError(t, WithMemoryLimit(0)(e.Option))
	require.Equal(t, uint64(0), e.Option.MemoryLimit)
}

func TestWithTimeout(t *testing.T) {
	e, err := NewEngine(WithTimeout(10))
	require.NoError(t, err)
	require.Equal(t, uint64(10), e.Option.Timeout)
}

func TestWithMaxStackSize(t *testing.T) {
	e, err := NewEngine(WithMaxStackSize(512 * 1024))
	require.NoError(t, err)
	require.Equal(t, uint64(512*1024), e.Option.MaxStackSize)
}

func TestWithCanBlockAndModuleImport(t *testing.T) {
	e, err := NewEngine(WithCanBlock(true), WithEnableModuleImport(true))
	require.NoError(t, err)
	require.True(t, e.Option.CanBlock)
	require.True(t, e.Option.EnableModuleImport)
}

func TestWithStrip(t *testing.T) {
	e, err := NewEngine(WithStrip(0))
	require.NoError(t, err)
	require.Equal(t, 0, e.Option.Strip)

	_, err = NewEngine(WithStrip(3))
	require.Error(t, err)
	_, err = NewEngine(WithStrip(-1))
	require.Error(t, err)
}

// TestOptionsApplied tests that configured options reach every runtime.
func TestOptionsApplied(t *testing.T) {
	e, err := NewEngine(
		WithMemoryLimit(64*1024*1024),
		WithGCThreshold(1024*1024),
		WithMaxStackSize(1024*1024),
		WithTimeout(5),
		WithStrip(2),
	)
	require.NoError(t, err)

	w := newTestRuntime(t, e, &Script{FileName: "sum.js", Content: "function sum(n) { var s = 0; for (var i = 1; i <= n; i++) s += i; return s; }"})
	result, err := w.call(e.RpcScript, "sum", []any{100})
	require.NoError(t, err)
	require.EqualValues(t, 5050, result)
}
