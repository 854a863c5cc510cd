// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// Policy decides how often a model call is attempted and how long to wait
// between attempts.
type Policy struct {
	// Attempts is the total number of calls, first one included
	Attempts int

	BaseDelay time.Duration
	MaxDelay  time.Duration

	// RateLimitDelay is the shortest wait after the backend reported a rate limit
	RateLimitDelay time.Duration

	// Jitter adds up to this fraction of the delay at random
	Jitter float64

	// OnRetry is called before each wait with the attempt about to run
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy returns the policy for interactive location requests: a
// short budget, doubling delays and a longer pause after a rate limit.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:       3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		RateLimitDelay: 2 * time.Second,
		Jitter:         0.25,
	}
}

// WithRetries returns p allowing n retries after the first call.
func (p Policy) WithRetries(n int) Policy {
	p.Attempts = max(0, n) + 1
	return p
}

// Delay returns the wait before attempt (2 for the first retry) after err.
func (p Policy) Delay(attempt int, err error) time.Duration {
	delay := p.BaseDelay
	for i := 2; i < attempt && (p.MaxDelay <= 0 || delay < p.MaxDelay); i++ {
		delay *= 2
	}
	if err != nil && ClassifyError(err).Type == ErrorTypeRateLimit {
		delay = max(delay, p.RateLimitDelay)
	}
	if p.Jitter > 0 {
		delay += time.Duration(float64(delay) * p.Jitter * rand.Float64())
	}
	if p.MaxDelay > 0 {
		delay = min(delay, p.MaxDelay)
	}
	return delay
}

// Call runs fn under p. Only retryable errors are retried. When breaker is
// non-nil it is consulted before every attempt and told every outcome; an
// open breaker ends the call at once. A retry that cannot finish its wait
// before ctx's deadline is not started and the last error is returned.
func Call[T any](ctx context.Context, p Policy, breaker *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(1, p.Attempts)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := p.Delay(attempt, lastErr)
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
				return zero, lastErr
			}
			if p.OnRetry != nil {
				p.OnRetry(attempt, lastErr, wait)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		if breaker != nil {
			if err := breaker.Allow(); err != nil {
				return zero, err
			}
		}
		result, err := fn(ctx)
		if breaker != nil {
			breaker.Record(err)
		}
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return zero, err
		}
	}
	return zero, lastErr
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
