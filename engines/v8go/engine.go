//go:build !windows

// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

// Package v8engine runs JavaScript functions as fixedpool tasks using V8.
// Every worker owns one isolate, created by the worker init hook on the
// worker's locked OS thread.
package v8engine

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/buke/fixedpool"
	"github.com/buke/fixedpool/internal/workerlocal"
	"github.com/tommie/v8go"
)

var (
	// Variables so tests can simulate allocation failures.
	v8NewIsolate = v8go.NewIsolate
	v8NewContext = v8go.NewContext
)

//go:embed engine_rpc.js
var rpcScript string

// Script is a JavaScript source run in every worker isolate.
type Script struct {
	Content  string // Script content
	FileName string // Script file name for error messages
}

// Response is the outcome of calling a JavaScript function.
type Response struct {
	Service string // Function that was called
	Result  any    // JSON-decoded return value (nil if Err is set)
	Err     error  // Lookup, execution or conversion error
}

type rpcRequest struct {
	Service string `json:"service"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result any `json:"result"`
}

// workerIsolate is the V8 state owned by a single worker.
type workerIsolate struct {
	iso *v8go.Isolate
	ctx *v8go.Context
}

func (w *workerIsolate) close() {
	if w.ctx != nil {
		w.ctx.Close()
		w.ctx = nil
	}
	if w.iso != nil {
		w.iso.Dispose()
		w.iso = nil
	}
}

// Engine keeps one V8 isolate per worker of the pool made by NewPool.
type Engine struct {
	Option    *EngineOption // Engine configuration options
	RpcScript string        // Dispatch function run for every call

	loadMu   sync.Mutex
	scripts  atomic.Pointer[[]*Script]
	pool     *fixedpool.Pool
	isolates *workerlocal.Slots[*workerIsolate]
}

// NewEngine creates an engine configured by opts. Isolates are created
// later, one per worker, by NewPool.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		Option:    &EngineOption{},
		RpcScript: rpcScript,
	}
	for _, opt := range opts {
		if err := opt(e.Option); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if e.Option.RpcScript != "" {
		e.RpcScript = e.Option.RpcScript
	}
	e.scripts.Store(&[]*Script{})
	return e, nil
}

// Load validates scripts in a scratch isolate and replaces the engine's
// script set. Each worker rebuilds its isolate before its next call.
// On an error the previous set is kept.
func (e *Engine) Load(scripts ...*Script) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	scratch, err := newIsolate(scripts)
	if err != nil {
		return err
	}
	scratch.close()

	loaded := append([]*Script(nil), scripts...)
	e.scripts.Store(&loaded)
	if e.isolates != nil {
		e.isolates.Invalidate()
	}
	return nil
}

// newIsolate creates an isolate and context and runs scripts in it.
func newIsolate(scripts []*Script) (*workerIsolate, error) {
	iso := v8NewIsolate()
	if iso == nil {
		return nil, fmt.Errorf("failed to create v8 isolate")
	}
	ctx := v8NewContext(iso)
	if ctx == nil {
		iso.Dispose()
		return nil, fmt.Errorf("failed to create v8 context")
	}
	w := &workerIsolate{iso: iso, ctx: ctx}

	for _, s := range scripts {
		if _, err := w.ctx.RunScript(s.Content, s.FileName); err != nil {
			w.close()
			return nil, fmt.Errorf("failed to execute script %s: %w", s.FileName, err)
		}
	}
	return w, nil
}

// buildIsolate creates the isolate of one worker from the current scripts.
func (e *Engine) buildIsolate(int) (*workerIsolate, error) {
	return newIsolate(*e.scripts.Load())
}

// NewPool creates a pool of size workers bound to e. Workers are locked to
// their OS threads and each one creates its isolate before accepting tasks.
// opts are applied after the engine's options. An engine serves one pool.
func NewPool(e *Engine, size int, opts ...fixedpool.Option) (*fixedpool.Pool, error) {
	if e.isolates != nil {
		return nil, errors.New("engine is already bound to a pool")
	}
	if size < 1 {
		size = 1
	}
	isolates := workerlocal.New(size, e.buildIsolate, (*workerIsolate).close)

	poolOpts := append([]fixedpool.Option{
		fixedpool.WithName("v8"),
		fixedpool.WithLockOSThread(true),
		fixedpool.WithWorkerInit(isolates.Init),
	}, opts...)
	p, err := fixedpool.New(size, poolOpts...)
	if err != nil {
		isolates.Close()
		return nil, err
	}
	e.pool = p
	e.isolates = isolates
	return p, nil
}

// call invokes the global function service in the isolate of worker index.
func (e *Engine) call(index int, service string, args ...any) (any, error) {
	if e.isolates == nil {
		return nil, errors.New("engine is not bound to a pool")
	}
	w, err := e.isolates.Get(index)
	if err != nil {
		return nil, err
	}
	return w.call(e.RpcScript, service, args)
}

func (w *workerIsolate) call(rpc, service string, args []any) (any, error) {
	rpcVal, err := w.ctx.RunScript(rpc, "engine_rpc.js")
	if err != nil {
		return nil, fmt.Errorf("failed to run rpc script: %w", err)
	}
	if !rpcVal.IsFunction() {
		return nil, fmt.Errorf("rpc script did not return a function")
	}

	// v8go.NewValue only takes primitives, so the request crosses as JSON
	if args == nil {
		args = []any{}
	}
	reqJSON, err := json.Marshal(&rpcRequest{Service: service, Args: args})
	if err != nil {
		return nil, fmt.Errorf("failed to json marshal request: %w", err)
	}
	jsReq, err := v8go.NewValue(w.iso, string(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create v8 value from json string: %w", err)
	}

	rpcFn, _ := rpcVal.AsFunction()
	promiseVal, err := rpcFn.Call(w.ctx.Global(), jsReq)
	if err != nil {
		return nil, fmt.Errorf("rpc function call failed: %w", err)
	}
	promise, err := promiseVal.AsPromise()
	if err != nil {
		return nil, fmt.Errorf("rpc call did not return a promise: %w", err)
	}
	w.ctx.PerformMicrotaskCheckpoint()

	switch promise.State() {
	case v8go.Rejected:
		return nil, fmt.Errorf("js execution error: %s", promise.Result().String())
	case v8go.Pending:
		return nil, fmt.Errorf("js promise still pending")
	}

	res := &rpcResponse{}
	if err := json.Unmarshal([]byte(promise.Result().String()), res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return res.Result, nil
}

// Submit schedules a call of service on p, which must come from NewPool(e, ...),
// and returns a future for the response. args are copied at submission time.
func Submit(p *fixedpool.Pool, e *Engine, service string, args ...any) *fixedpool.Future[*Response] {
	if p != e.pool {
		return fixedpool.SubmitWithResult(p, func() *Response {
			return &Response{Service: service, Err: errors.New("pool is not bound to this engine")}
		})
	}
	bound := append([]any(nil), args...)
	return fixedpool.SubmitIndexedWithResult(p, func(index int) *Response {
		result, err := e.call(index, service, bound...)
		return &Response{Service: service, Result: result, Err: err}
	})
}

// Close disposes every worker isolate. Close the pool first: isolates must
// not be in use.
func (e *Engine) Close() error {
	if e.isolates != nil {
		e.isolates.Close()
	}
	return nil
}
