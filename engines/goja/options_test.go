// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package gojaengine

import (
	"testing"

	"github.com/dop251/goja"
	gojarequire "github.com/dop251/goja_nodejs/require"
	"github.com/stretchr/testify/require"
)

func TestWithMaxCallStackSize(t *testing.T) {
	engine := newLoadedEngine(t, "function deep(n) { return n === 0 ? 0 : deep(n - 1); }", WithMaxCallStackSize(64))
	require.Equal(t, 64, engine.Option.MaxCallStackSize)

	_, err := engine.Call("deep", 10)
	require.NoError(t, err)

	_, err = engine.Call("deep", 1000)
	require.Error(t, err)
}

func TestWithEnableConsole(t *testing.T) {
	engine := newLoadedEngine(t, "function hasConsole() { return typeof console === 'object'; }", WithEnableConsole())
	require.True(t, engine.Option.EnableConsole)

	result, err := engine.Call("hasConsole")
	require.NoError(t, err)
	require.Equal(t, true, result)
}

func TestRequireAlwaysAvailable(t *testing.T) {
	engine := newLoadedEngine(t, "function hasRequire() { return typeof require === 'function'; }")
	result, err := engine.Call("hasRequire")
	require.NoError(t, err)
	require.Equal(t, true, result)
}

func TestWithRegistry(t *testing.T) {
	registry := gojarequire.NewRegistry()
	registry.RegisterNativeModule("greeting", func(vm *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)
		_ = exports.Set("text", "hi from Go")
	})

	engine := newLoadedEngine(t, "function greet() { return require('greeting').text; }", WithRegistry(registry))
	require.Same(t, registry, engine.Option.Registry)

	result, err := engine.Call("greet")
	require.NoError(t, err)
	require.Equal(t, "hi from Go", result)

	_, err = NewEngine(WithRegistry(nil))
	require.Error(t, err)
}

func TestWithoutConsole(t *testing.T) {
	engine := newLoadedEngine(t, "function hasConsole() { return typeof console === 'object'; }")
	result, err := engine.Call("hasConsole")
	require.NoError(t, err)
	require.Equal(t, false, result)
}

func TestWithFieldNameMapper(t *testing.T) {
	type item struct {
		Name string
	}
	engine := newLoadedEngine(t, "function name(it) { return it.name; }",
		WithFieldNameMapper(goja.UncapFieldNameMapper()))

	result, err := engine.Call("name", item{Name: "widget"})
	require.NoError(t, err)
	require.Equal(t, "widget", result)

	_, err = NewEngine(WithFieldNameMapper(nil))
	require.Error(t, err)
}
