// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_PreservesOrder(t *testing.T) {
	inputs := make([]int, 50)
	for i := range inputs {
		inputs[i] = i
	}
	var calls int32
	var progressCalls int32

	results, stats := Process(context.Background(), 4, inputs, func(_ context.Context, n int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return n * n, nil
	}, nil, func(completed, total int) {
		atomic.AddInt32(&progressCalls, 1)
		assert.Equal(t, 50, total)
	})

	require.Len(t, results, 50)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, i*i, r.Output)
		assert.NoError(t, r.Error)
	}
	assert.Equal(t, int32(50), calls)
	assert.Equal(t, int32(50), progressCalls)
	assert.Equal(t, 50, stats.TotalItems)
	assert.Equal(t, 0, stats.FailedItems)
	assert.Equal(t, 4, stats.WorkerCount)
}

func TestProcess_IsolatesErrorsAndPanics(t *testing.T) {
	inputs := []string{"ok", "error", "panic", "ok"}

	results, stats := Process(context.Background(), 2, inputs, func(_ context.Context, s string) (string, error) {
		switch s {
		case "error":
			return "", errors.New("bad item")
		case "panic":
			panic("unexpected")
		}
		return s + "!", nil
	}, nil, nil)

	require.Len(t, results, 4)
	assert.Equal(t, "ok!", results[0].Output)
	assert.EqualError(t, results[1].Error, "bad item")
	assert.ErrorContains(t, results[2].Error, "panicked")
	assert.Equal(t, "ok!", results[3].Output)
	assert.Equal(t, 2, stats.FailedItems)
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, stats := Process(ctx, 2, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		return n, nil
	}, nil, nil)

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Error(t, r.Error)
	}
	assert.Equal(t, 3, stats.FailedItems)
}

func TestProcess_Empty(t *testing.T) {
	results, stats := Process(context.Background(), 0, []int(nil), func(_ context.Context, n int) (int, error) {
		return n, nil
	}, nil, nil)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.TotalItems)
}

func TestDefaultWorkers(t *testing.T) {
	w := DefaultWorkers()
	assert.GreaterOrEqual(t, w, 1)
	assert.LessOrEqual(t, w, 8)
}
