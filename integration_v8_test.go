//go:build !windows

// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/buke/fixedpool"
	v8engine "github.com/buke/fixedpool/engines/v8go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegration_PoolWithV8 tests concurrent script tasks on V8 workers.
func TestIntegration_PoolWithV8(t *testing.T) {
	engine, err := v8engine.NewEngine()
	require.NoError(t, err)
	require.NoError(t, engine.Load(&v8engine.Script{
		FileName: "hello.js",
		Content:  `function hello(name) { return "Hi, " + name + "!"; }`,
	}))

	pool, err := v8engine.NewPool(engine, 2, fixedpool.WithLogger(nil))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user-%d", i)
			resp := v8engine.Submit(pool, engine, "hello", name).Wait()
			assert.NoError(t, resp.Err)
			assert.Equal(t, "Hi, "+name+"!", resp.Result)
		}(i)
	}
	wg.Wait()

	require.NoError(t, pool.Close())
	require.NoError(t, engine.Close())
}
