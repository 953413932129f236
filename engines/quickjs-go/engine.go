// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

// Package quickjsengine runs JavaScript functions as fixedpool tasks using
// QuickJS. Every worker owns one runtime, created by the worker init hook on
// the worker's locked OS thread and used only from that thread.
package quickjsengine

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/buke/fixedpool"
	"github.com/buke/fixedpool/internal/workerlocal"
	"github.com/buke/quickjs-go"
)

//go:embed engine_rpc.js
var rpcScript string

const defaultStrip = 1

// Script is a JavaScript source evaluated in every worker runtime.
type Script struct {
	Content  string // Script content
	FileName string // Script file name for error messages
}

// Response is the outcome of calling a JavaScript function.
type Response struct {
	Service string // Function that was called
	Result  any    // Unmarshaled return value (nil if Err is set)
	Err     error  // Lookup, execution or conversion error
}

type rpcRequest struct {
	Service string `json:"service"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result any `json:"result"`
}

// workerRuntime is the QuickJS state owned by a single worker.
type workerRuntime struct {
	rt  *quickjs.Runtime
	ctx *quickjs.Context
}

func (w *workerRuntime) close() {
	if w.ctx != nil {
		w.ctx.Close()
		w.ctx = nil
	}
	if w.rt != nil {
		w.rt.Close()
		w.rt = nil
	}
}

// Engine keeps one QuickJS runtime per worker of the pool made by NewPool.
type Engine struct {
	Option    *EngineOption // Engine configuration options
	RpcScript string        // Dispatch function evaluated for every call

	loadMu   sync.Mutex
	scripts  atomic.Pointer[[]*Script]
	pool     *fixedpool.Pool
	runtimes *workerlocal.Slots[*workerRuntime]
}

// NewEngine creates an engine configured by opts. Runtimes are created
// later, one per worker, by NewPool.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		Option: &EngineOption{
			Strip: defaultStrip,
		},
		RpcScript: rpcScript,
	}
	for _, opt := range opts {
		if err := opt(e.Option); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	e.scripts.Store(&[]*Script{})
	return e, nil
}

// Load validates scripts in a scratch runtime and replaces the engine's
// script set. Each worker rebuilds its runtime before its next call.
// On an error the previous set is kept.
func (e *Engine) Load(scripts ...*Script) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	scratch, err := e.newRuntime(scripts)
	if err != nil {
		return err
	}
	scratch.close()

	loaded := append([]*Script(nil), scripts...)
	e.scripts.Store(&loaded)
	if e.runtimes != nil {
		e.runtimes.Invalidate()
	}
	return nil
}

// newRuntime creates a runtime with the engine options and runs scripts in it.
func (e *Engine) newRuntime(scripts []*Script) (*workerRuntime, error) {
	rt := quickjs.NewRuntime()
	e.Option.apply(rt)
	w := &workerRuntime{rt: rt, ctx: rt.NewContext()}

	for _, s := range scripts {
		v := w.ctx.Eval(s.Content, quickjs.EvalFileName(s.FileName), quickjs.EvalAwait(true))
		if v.IsException() {
			err := w.ctx.Exception()
			v.Free()
			w.close()
			return nil, fmt.Errorf("failed to execute script %s: %w", s.FileName, err)
		}
		v.Free()
	}
	return w, nil
}

// buildRuntime creates the runtime of one worker from the current scripts.
// It runs on that worker's locked OS thread.
func (e *Engine) buildRuntime(int) (*workerRuntime, error) {
	return e.newRuntime(*e.scripts.Load())
}

// NewPool creates a pool of size workers bound to e. Workers are locked to
// their OS threads and each one creates its runtime before accepting tasks.
// opts are applied after the engine's options. An engine serves one pool.
func NewPool(e *Engine, size int, opts ...fixedpool.Option) (*fixedpool.Pool, error) {
	if e.runtimes != nil {
		return nil, errors.New("engine is already bound to a pool")
	}
	if size < 1 {
		size = 1
	}
	runtimes := workerlocal.New(size, e.buildRuntime, (*workerRuntime).close)

	poolOpts := append([]fixedpool.Option{
		fixedpool.WithName("quickjs"),
		fixedpool.WithLockOSThread(true),
		fixedpool.WithWorkerInit(runtimes.Init),
	}, opts...)
	p, err := fixedpool.New(size, poolOpts...)
	if err != nil {
		runtimes.Close()
		return nil, err
	}
	e.pool = p
	e.runtimes = runtimes
	return p, nil
}

// call invokes the global function service in the runtime of worker index.
func (e *Engine) call(index int, service string, args ...any) (any, error) {
	if e.runtimes == nil {
		return nil, errors.New("engine is not bound to a pool")
	}
	w, err := e.runtimes.Get(index)
	if err != nil {
		return nil, err
	}
	return w.call(e.RpcScript, service, args)
}

func (w *workerRuntime) call(rpc, service string, args []any) (any, error) {
	fn := w.ctx.Eval(rpc, quickjs.EvalFileName("engine_rpc.js"))
	defer fn.Free()
	if fn.IsException() {
		return nil, fmt.Errorf("failed to evaluate RPC script: %w", w.ctx.Exception())
	}

	if args == nil {
		args = []any{}
	}
	jsReq, err := w.ctx.Marshal(&rpcRequest{Service: service, Args: args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	defer jsReq.Free()

	jsResp := fn.Execute(w.ctx.Null(), jsReq).Await()
	defer jsResp.Free()
	if jsResp.IsException() {
		return nil, fmt.Errorf("failed to call function: %w", w.ctx.Exception())
	}

	res := &rpcResponse{}
	if err := w.ctx.Unmarshal(jsResp, res); err != nil {
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

// Close releases every worker runtime. Close the pool first: runtimes must
// not be in use.
func (e *Engine) Close() error {
	if e.runtimes != nil {
		e.runtimes.Close()
	}
	return nil
}
