// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

// Package gojaengine runs JavaScript functions as fixedpool tasks using the
// Goja engine. Each call gets a fresh runtime driven by its own event loop,
// so calls never share JS state, may run on any worker, and can use timers.
package gojaengine

import (
	"fmt"
	"sync/atomic"

	"github.com/buke/fixedpool"
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// Script is a JavaScript source loaded into every runtime before a call.
type Script struct {
	Content  string // Script content
	FileName string // Script file name for error messages
}

// Response is the outcome of calling a JavaScript function.
type Response struct {
	Service string // Function that was called
	Result  any    // Exported return value (nil if Err is set)
	Err     error  // Compile, lookup or execution error
}

type compiledScript struct {
	name    string
	program *goja.Program
}

// Engine compiles scripts once and calls their functions in new runtimes.
// It is safe for concurrent use.
type Engine struct {
	Option  *EngineOption // Engine configuration options.
	scripts atomic.Pointer[[]compiledScript]
}

// NewEngine creates an engine configured by opts.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		Option: &EngineOption{
			FieldNameMapper: goja.TagFieldNameMapper("json", true),
		},
	}
	for _, opt := range opts {
		if err := opt(e.Option); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	empty := make([]compiledScript, 0)
	e.scripts.Store(&empty)
	return e, nil
}

// Load compiles scripts and replaces the engine's current script set.
// On a compile error the previous set is kept.
func (e *Engine) Load(scripts ...*Script) error {
	compiled := make([]compiledScript, 0, len(scripts))
	for _, s := range scripts {
		prog, err := goja.Compile(s.FileName, s.Content, false)
		if err != nil {
			return fmt.Errorf("failed to compile script %s: %w", s.FileName, err)
		}
		compiled = append(compiled, compiledScript{name: s.FileName, program: prog})
	}
	e.scripts.Store(&compiled)
	return nil
}

// runScripts applies the engine options to vm and executes all loaded scripts.
func (e *Engine) runScripts(vm *goja.Runtime) error {
	e.Option.apply(vm)
	for _, s := range *e.scripts.Load() {
		if _, err := vm.RunProgram(s.program); err != nil {
			return fmt.Errorf("failed to execute script %s: %w", s.name, err)
		}
	}
	return nil
}

// Call invokes the global function service with args and returns its
// exported result. The event loop runs until no timers are left, so a
// returned promise may settle through setTimeout. A script that keeps an
// interval running makes Call block forever.
func (e *Engine) Call(service string, args ...any) (any, error) {
	loop := eventloop.NewEventLoop(eventloop.EnableConsole(e.Option.EnableConsole))

	var (
		result goja.Value
		err    error
	)
	loop.Run(func(vm *goja.Runtime) {
		if err = e.runScripts(vm); err != nil {
			return
		}

		fn, ok := goja.AssertFunction(vm.Get(service))
		if !ok {
			err = fmt.Errorf("service %q is not a function", service)
			return
		}

		jsArgs := make([]goja.Value, len(args))
		for i, arg := range args {
			jsArgs[i] = vm.ToValue(arg)
		}

		if result, err = fn(goja.Undefined(), jsArgs...); err != nil {
			err = fmt.Errorf("js execution error: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	// The loop has stopped, so the runtime is no longer in use
	return exportResult(result)
}

// exportResult converts a JS value to Go, unwrapping settled promises.
func exportResult(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	promise, ok := v.Export().(*goja.Promise)
	if !ok {
		return v.Export(), nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return exportResult(promise.Result())
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("js promise rejected: %s", promise.Result().String())
	default:
		return nil, fmt.Errorf("js promise still pending after the event loop finished")
	}
}

// Submit schedules a call of service on p and returns a future for the response.
// args are copied at submission time.
func Submit(p *fixedpool.Pool, e *Engine, service string, args ...any) *fixedpool.Future[*Response] {
	bound := append([]any(nil), args...)
	return fixedpool.SubmitWithResult(p, func() *Response {
		result, err := e.Call(service, bound...)
		return &Response{Service: service, Result: result, Err: err}
	})
}
