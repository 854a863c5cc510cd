// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var outage = NewTransientError("unavailable", nil)

// fakeClock lets tests move a breaker past its cooldown.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *fakeClock, *[]string) {
	var transitions []string
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg := DefaultBreakerConfig("gemini")
	cfg.Threshold = threshold
	cfg.Cooldown = time.Minute
	cfg.OnStateChange = func(name string, from, to BreakerState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	b := NewBreaker(cfg)
	b.now = clock.now
	return b, clock, &transitions
}

func TestBreaker_OpensAfterConsecutiveOutages(t *testing.T) {
	b, _, transitions := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("call %d refused: %v", i, err)
		}
		b.Record(outage)
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected OPEN, got %v", b.State())
	}

	err := b.Allow()
	if !IsOpen(err) {
		t.Fatalf("expected an open error, got %v", err)
	}
	var open *OpenError
	errors.As(err, &open)
	if open.RetryAfter != time.Minute {
		t.Errorf("expected a full cooldown, got %v", open.RetryAfter)
	}
	if !strings.Contains(err.Error(), "last outage: unavailable") {
		t.Errorf("error should name the last outage: %q", err.Error())
	}
	if len(*transitions) != 1 || (*transitions)[0] != "CLOSED->OPEN" {
		t.Errorf("unexpected transitions %v", *transitions)
	}
}

func TestBreaker_SuccessResetsTheCount(t *testing.T) {
	b, _, _ := newTestBreaker(2)

	b.Record(outage)
	b.Record(nil)
	b.Record(outage)
	if b.State() != BreakerClosed {
		t.Errorf("outages separated by a success should not open the breaker, got %v", b.State())
	}
	if got := b.Stats().ConsecutiveOutages; got != 1 {
		t.Errorf("expected 1 consecutive outage, got %d", got)
	}
}

func TestBreaker_IgnoresAnswersFromAHealthyBackend(t *testing.T) {
	b, _, _ := newTestBreaker(1)

	for _, err := range []error{
		errors.New("API key not valid"),
		NewInvalidResponseError("reply was not JSON", nil),
		NewPermanentError("prompt rejected", nil),
	} {
		b.Record(err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("non-outage errors should not open the breaker, got %v", b.State())
	}
}

func TestBreaker_TrialCallClosesOnSuccess(t *testing.T) {
	b, clock, transitions := newTestBreaker(1)
	b.Record(outage)

	clock.advance(30 * time.Second)
	if !IsOpen(b.Allow()) {
		t.Fatal("breaker should stay open during the cooldown")
	}

	clock.advance(31 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("trial call should be allowed after the cooldown, got %v", err)
	}
	if !IsOpen(b.Allow()) {
		t.Error("only one trial call may be in flight")
	}

	b.Record(nil)
	if b.State() != BreakerClosed {
		t.Errorf("expected CLOSED after a good trial call, got %v", b.State())
	}
	want := []string{"CLOSED->OPEN", "OPEN->TRIAL", "TRIAL->CLOSED"}
	if strings.Join(*transitions, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, *transitions)
	}
}

func TestBreaker_TrialCallFailureReopens(t *testing.T) {
	b, clock, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		b.Record(outage)
	}

	clock.advance(2 * time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("trial call should be allowed, got %v", err)
	}
	b.Record(outage)

	if b.State() != BreakerOpen {
		t.Fatalf("expected OPEN after a failed trial call, got %v", b.State())
	}
	stats := b.Stats()
	if stats.Trips != 2 || stats.ConsecutiveOutages != 4 || !stats.OpenedAt.Equal(clock.t) {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.LastOutage != "unavailable" {
		t.Errorf("expected last outage in stats, got %q", stats.LastOutage)
	}
}

func TestIsOutage(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{outage, true},
		{errors.New("Error 429, Status: RESOURCE_EXHAUSTED"), true},
		{errors.New("the model is overloaded"), true},
		{errors.New("request timeout"), true},
		{errors.New("invalid argument"), false},
		{NewInvalidResponseError("not JSON", nil), false},
		{&OpenError{Name: "gemini"}, false},
	}
	for _, tc := range cases {
		if got := IsOutage(tc.err); got != tc.want {
			t.Errorf("IsOutage(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
