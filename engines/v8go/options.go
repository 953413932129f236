//go:build !windows

// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package v8engine

import "fmt"

// EngineOption holds specific configurations for the V8 engine.
type EngineOption struct {
	RpcScript string // Overrides the embedded dispatch script when set
}

// Option configures an Engine.
type Option func(*EngineOption) error

// WithRpcScript replaces the script that dispatches calls to JS functions.
// It must evaluate to a function taking the JSON request and returning a
// promise of the JSON response.
func WithRpcScript(script string) Option {
	return func(o *EngineOption) error {
		if script == "" {
			return fmt.Errorf("rpc script cannot be empty")
		}
		o.RpcScript = script
		return nil
	}
}
