// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"runtime"
	"time"

	"highlight-locator/internal/observability"
)

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalItems    int           `json:"total_items"`
	FailedItems   int           `json:"failed_items"`
	TotalDuration time.Duration `json:"total_duration_ms"`
	WorkerCount   int           `json:"worker_count"`
	AvgItemTime   time.Duration `json:"avg_item_time_ms"`
}

// ProgressCallback is called when an item is completed
type ProgressCallback func(completed, total int)

// DefaultWorkers returns the CPU count capped at 8
func DefaultWorkers() int {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8 // Cap at 8 workers to avoid resource exhaustion
	}
	return workers
}

// Process runs fn over inputs on a worker pool and returns the results in
// input order. Per-item errors (including panics) are reported in the
// corresponding Result; Process itself never fails.
func Process[In, Out any](ctx context.Context, workers int, inputs []In, fn func(ctx context.Context, in In) (Out, error), observer *observability.StandardObserver, progress ProgressCallback) ([]Result[Out], *ProcessingStats) {
	start := time.Now()
	finishTiming := observer.StartTiming("parallel_processor", "process_batch", "batch")

	if workers <= 0 {
		workers = DefaultWorkers()
	}
	workers = min(workers, max(len(inputs), 1))

	pool := NewWorkerPool(ctx, workers, fn, observer)
	pool.Start()
	// closes Results once every worker has exited
	go pool.Stop()

	// Submit jobs in a separate goroutine to prevent deadlock
	go func() {
		defer pool.Close()
		for i, in := range inputs {
			if !pool.Submit(&Job[In]{Index: i, Input: in}) {
				return
			}
		}
	}()

	out := make([]Result[Out], len(inputs))
	received := make([]bool, len(inputs))
	failed := 0
	totalDuration := time.Duration(0)

	done := 0
	for result := range pool.Results() {
		done++
		out[result.Index] = *result
		received[result.Index] = true
		if result.Error != nil {
			failed++
		}
		totalDuration += result.Duration

		if progress != nil {
			progress(done, len(inputs))
		}
	}

	// jobs never submitted or delivered because the context ended
	for i, ok := range received {
		if !ok {
			err := context.Cause(ctx)
			if err == nil {
				err = context.Canceled
			}
			out[i] = Result[Out]{Index: i, Error: err}
			failed++
		}
	}

	stats := &ProcessingStats{
		TotalItems:    len(inputs),
		FailedItems:   failed,
		TotalDuration: time.Since(start),
		WorkerCount:   workers,
		AvgItemTime:   totalDuration / time.Duration(max(len(inputs), 1)),
	}
	finishTiming(failed == 0, map[string]interface{}{
		"total_items":  stats.TotalItems,
		"failed_items": stats.FailedItems,
		"worker_count": workers,
	})
	return out, stats
}
