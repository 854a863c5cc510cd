// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota // calls flow
	BreakerOpen                       // calls are refused until the cooldown ends
	BreakerTrial                      // one trial call tests the backend
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerTrial:
		return "TRIAL"
	default:
		return fmt.Sprintf("BreakerState(%d)", int(s))
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	Name string

	// Threshold is the number of consecutive outages that opens the breaker
	Threshold int

	// Cooldown is how long an open breaker refuses calls before a trial call
	Cooldown time.Duration

	OnStateChange func(name string, from, to BreakerState)
}

// DefaultBreakerConfig returns the breaker settings used for model calls.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:      name,
		Threshold: 5,
		Cooldown:  30 * time.Second,
	}
}

// IsOutage reports whether err says the backend itself is unhealthy. Bad
// prompts, rejected keys and unparseable replies are answered by a working
// backend and never count against it.
func IsOutage(err error) bool {
	if err == nil {
		return false
	}
	switch ClassifyError(err).Type {
	case ErrorTypeTransient, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeServiceUnavailable:
		return true
	}
	return false
}

// Breaker stops calls to a model backend after repeated outages. Once the
// cooldown has passed a single trial call is let through: success closes the
// breaker, another outage reopens it.
type Breaker struct {
	config BreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       BreakerState
	consecutive int
	trips       int
	openedAt    time.Time
	lastOutage  error
}

// NewBreaker creates a closed breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.Threshold <= 0 {
		config.Threshold = 1
	}
	return &Breaker{config: config, now: time.Now}
}

// Allow returns nil when a call may proceed and an *OpenError otherwise.
// Every allowed call must be followed by Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		waited := b.now().Sub(b.openedAt)
		if waited < b.config.Cooldown {
			return &OpenError{
				Name:       b.config.Name,
				RetryAfter: b.config.Cooldown - waited,
				Last:       b.lastOutage,
			}
		}
		b.transition(BreakerTrial)
		return nil
	case BreakerTrial:
		// the trial call is still in flight
		return &OpenError{Name: b.config.Name, Last: b.lastOutage}
	}
	return nil
}

// Record reports the outcome of an allowed call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !IsOutage(err) {
		b.consecutive = 0
		if b.state == BreakerTrial {
			b.transition(BreakerClosed)
		}
		return
	}

	b.consecutive++
	b.lastOutage = err
	if b.state == BreakerTrial || b.consecutive >= b.config.Threshold {
		b.openedAt = b.now()
		if b.state != BreakerOpen {
			b.trips++
		}
		b.transition(BreakerOpen)
	}
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, from, to)
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot for diagnostics.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := BreakerStats{
		Name:               b.config.Name,
		State:              b.state.String(),
		ConsecutiveOutages: b.consecutive,
		Trips:              b.trips,
	}
	if b.state != BreakerClosed {
		stats.OpenedAt = b.openedAt
	}
	if b.lastOutage != nil {
		stats.LastOutage = b.lastOutage.Error()
	}
	return stats
}

// BreakerStats is a snapshot of a Breaker.
type BreakerStats struct {
	Name               string    `json:"name" yaml:"name"`
	State              string    `json:"state" yaml:"state"`
	ConsecutiveOutages int       `json:"consecutive_outages" yaml:"consecutive_outages"`
	Trips              int       `json:"trips" yaml:"trips"`
	OpenedAt           time.Time `json:"opened_at,omitempty" yaml:"opened_at,omitempty"`
	LastOutage         string    `json:"last_outage,omitempty" yaml:"last_outage,omitempty"`
}

// OpenError is returned instead of calling a backend the breaker has given
// up on.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
	Last       error
}

func (e *OpenError) Error() string {
	msg := fmt.Sprintf("%s: circuit open", e.Name)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", next trial call in %v", e.RetryAfter.Round(time.Second))
	}
	if e.Last != nil {
		msg += fmt.Sprintf(" (last outage: %v)", e.Last)
	}
	return msg
}

// IsOpen reports whether err came from an open breaker.
func IsOpen(err error) bool {
	var open *OpenError
	return errors.As(err, &open)
}
