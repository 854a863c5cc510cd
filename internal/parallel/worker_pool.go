// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"highlight-locator/internal/observability"
)

// WorkerPool runs a function over submitted inputs on a fixed number of
// goroutines. A panicking job is turned into an error result instead of
// taking the pool down.
type WorkerPool[In, Out any] struct {
	workers  int
	jobs     chan *Job[In]
	results  chan *Result[Out]
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	observer *observability.StandardObserver
	process  func(ctx context.Context, in In) (Out, error)
}

// Job is one unit of work; Index is its position in the submitted batch
type Job[In any] struct {
	Index int
	Input In
}

// Result represents processing results
type Result[Out any] struct {
	Index    int
	Output   Out
	Error    error
	Duration time.Duration
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool[In, Out any](ctx context.Context, workers int, process func(ctx context.Context, in In) (Out, error), observer *observability.StandardObserver) *WorkerPool[In, Out] {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool[In, Out]{
		workers:  workers,
		jobs:     make(chan *Job[In], workers*2),
		results:  make(chan *Result[Out], workers*2),
		ctx:      ctx,
		cancel:   cancel,
		observer: observer,
		process:  process,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool[In, Out]) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for the workers to drain and closes the results channel. It
// returns once the job queue has been closed with Close and emptied.
func (wp *WorkerPool[In, Out]) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Close signals that no more jobs will be submitted
func (wp *WorkerPool[In, Out]) Close() {
	close(wp.jobs)
}

// Submit adds a job to the queue. It gives up if the pool's context ends.
func (wp *WorkerPool[In, Out]) Submit(job *Job[In]) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Results returns the results channel
func (wp *WorkerPool[In, Out]) Results() <-chan *Result[Out] {
	return wp.results
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool[In, Out]) Workers() int {
	return wp.workers
}

// worker processes jobs from the queue
func (wp *WorkerPool[In, Out]) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob executes a single job with panic isolation
func (wp *WorkerPool[In, Out]) processJob(job *Job[In], workerID int) (result *Result[Out]) {
	start := time.Now()
	result = &Result[Out]{Index: job.Index}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("job %d panicked: %v", job.Index, r)
			wp.observer.Warn("worker_pool", "job panicked", map[string]interface{}{
				"worker_id": workerID,
				"job":       job.Index,
				"panic":     fmt.Sprint(r),
			})
		}
		result.Duration = time.Since(start)
	}()

	if err := wp.ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	result.Output, result.Error = wp.process(wp.ctx, job.Input)
	return result
}
