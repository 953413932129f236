// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package gojaengine

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// EngineOption holds configuration applied to every runtime an Engine creates.
// require() and the timer functions are always available.
type EngineOption struct {
	MaxCallStackSize int                  // 0 or less means no limit
	EnableConsole    bool                 // Expose console.log and friends
	Registry         *require.Registry    // Module registry used by require(); nil keeps the loop's default
	FieldNameMapper  goja.FieldNameMapper // Go struct field naming in JS
}

// Option configures an Engine.
type Option func(*EngineOption) error

// WithMaxCallStackSize sets the maximum call stack size for each runtime.
// A value of 0 or less means no limit.
func WithMaxCallStackSize(size int) Option {
	return func(o *EngineOption) error {
		o.MaxCallStackSize = size
		return nil
	}
}

// WithEnableConsole enables the console object (console.log, etc.) in each runtime.
func WithEnableConsole() Option {
	return func(o *EngineOption) error {
		o.EnableConsole = true
		return nil
	}
}

// WithRegistry makes require() resolve modules through registry, so native
// modules and source loaders registered there are visible to scripts.
func WithRegistry(registry *require.Registry) Option {
	return func(o *EngineOption) error {
		if registry == nil {
			return fmt.Errorf("module registry cannot be nil")
		}
		o.Registry = registry
		return nil
	}
}

// WithFieldNameMapper sets the field name mapper for Go-to-JS struct conversions.
func WithFieldNameMapper(mapper goja.FieldNameMapper) Option {
	return func(o *EngineOption) error {
		if mapper == nil {
			return fmt.Errorf("field name mapper cannot be nil")
		}
		o.FieldNameMapper = mapper
		return nil
	}
}

// apply configures vm according to o. Console is handled by the event loop.
func (o *EngineOption) apply(vm *goja.Runtime) {
	if o.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(o.MaxCallStackSize)
	}
	if o.FieldNameMapper != nil {
		vm.SetFieldNameMapper(o.FieldNameMapper)
	}
	if o.Registry != nil {
		o.Registry.Enable(vm)
	}
}
