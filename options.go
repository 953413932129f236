// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool

import "log/slog"

// PoolOption contains configuration options for the pool
type PoolOption struct {
	name         string                // Prefix for worker names
	lockOSThread bool                  // Lock each worker goroutine to an OS thread
	workerInit   func(index int) error // Runs on each worker goroutine before it accepts tasks
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger configures the logger for the pool. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithName sets the prefix used to name workers ("<name>-<n>").
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.options.name = name
		}
	}
}

// WithLockOSThread pins every worker goroutine to its own OS thread.
func WithLockOSThread(lock bool) Option {
	return func(p *Pool) {
		p.options.lockOSThread = lock
	}
}

// WithWorkerInit installs a hook executed on each worker goroutine before the
// worker accepts tasks. An error from any worker fails New.
func WithWorkerInit(fn func(index int) error) Option {
	return func(p *Pool) {
		p.options.workerInit = fn
	}
}
