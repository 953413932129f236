// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package quickjsengine

import (
	"fmt"

	"github.com/buke/quickjs-go"
)

// EngineOption holds the settings applied to every worker runtime.
type EngineOption struct {
	Timeout            uint64 `json:"timeout"`            // Script execution timeout in seconds (0 = no timeout)
	MemoryLimit        uint64 `json:"memoryLimit"`        // Memory limit in bytes (0 = no limit)
	GCThreshold        int64  `json:"gcThreshold"`        // GC threshold in bytes (-1 = disable, 0 = default)
	MaxStackSize       uint64 `json:"maxStackSize"`       // Stack size in bytes (0 = default)
	CanBlock           bool   `json:"canBlock"`           // Allow Atomics.wait and other blocking calls
	EnableModuleImport bool   `json:"enableModuleImport"` // Enable ES6 module import support
	Strip              int    `json:"strip"`              // Strip level for bytecode compilation
}

// Option configures an Engine.
type Option func(*EngineOption) error

// WithGCThreshold sets the garbage collection threshold.
// Use -1 to disable automatic GC, 0 for default, or a positive value for a custom threshold.
func WithGCThreshold(threshold int64) Option {
	return func(o *EngineOption) error {
		if threshold < -1 {
			return fmt.Errorf("invalid GC threshold: %d", threshold)
		}
		o.GCThreshold = threshold
		return nil
	}
}

// WithMemoryLimit sets the memory limit of each runtime in bytes. 0 means no limit.
func WithMemoryLimit(limit uint64) Option {
	return func(o *EngineOption) error {
		o.MemoryLimit = limit
		return nil
	}
}

// WithTimeout sets the script execution timeout in seconds. 0 means no timeout.
func WithTimeout(timeout uint64) Option {
	return func(o *EngineOption) error {
		o.Timeout = timeout
		return nil
	}
}

// WithMaxStackSize sets the stack size of each runtime in bytes. 0 keeps the default.
func WithMaxStackSize(size uint64) Option {
	return func(o *EngineOption) error {
		o.MaxStackSize = size
		return nil
	}
}

// WithCanBlock enables or disables blocking operations in the runtime.
func WithCanBlock(canBlock bool) Option {
	return func(o *EngineOption) error {
		o.CanBlock = canBlock
		return nil
	}
}

// WithEnableModuleImport enables or disables ES6 module import support.
func WithEnableModuleImport(enable bool) Option {
	return func(o *EngineOption) error {
		o.EnableModuleImport = enable
		return nil
	}
}

// WithStrip sets the strip level for bytecode compilation, from 0 (keep
// everything) to 2.
func WithStrip(strip int) Option {
	return func(o *EngineOption) error {
		if strip < 0 || strip > 2 {
			return fmt.Errorf("invalid strip level: %d", strip)
		}
		o.Strip = strip
		return nil
	}
}

// apply configures rt according to o. Unset values keep the runtime defaults.
func (o *EngineOption) apply(rt *quickjs.Runtime) {
	if o.Timeout > 0 {
		rt.SetExecuteTimeout(o.Timeout)
	}
	if o.MemoryLimit > 0 {
		rt.SetMemoryLimit(o.MemoryLimit)
	}
	if o.GCThreshold != 0 {
		rt.SetGCThreshold(o.GCThreshold)
	}
	if o.MaxStackSize > 0 {
		rt.SetMaxStackSize(o.MaxStackSize)
	}
	if o.CanBlock {
		rt.SetCanBlock(true)
	}
	if o.EnableModuleImport {
		rt.SetModuleImport(true)
	}
	if o.Strip != defaultStrip {
		rt.SetStripInfo(o.Strip)
	}
}
