// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		want      ErrorType
		retryable bool
	}{
		{"rate limit", errors.New("Error 429, Status: RESOURCE_EXHAUSTED"), ErrorTypeRateLimit, true},
		{"overloaded", errors.New("the model is overloaded"), ErrorTypeServiceUnavailable, true},
		{"deadline", fmt.Errorf("generate: %w", context.DeadlineExceeded), ErrorTypeTimeout, true},
		{"canceled", fmt.Errorf("generate: %w", context.Canceled), ErrorTypeCanceled, false},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, ErrorTypeTransient, true},
		{"api key", errors.New("API key not valid"), ErrorTypePermanent, false},
		{"unknown model", errors.New("models/foo is not found"), ErrorTypeResourceNotFound, false},
		{"bad request", errors.New("invalid argument"), ErrorTypeInvalidInput, false},
		{"open breaker", &OpenError{Name: "x"}, ErrorTypeCircuitOpen, false},
		{"other", errors.New("something odd"), ErrorTypeUnknown, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyError(tc.err)
			if got.Type != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got.Type)
			}
			if got.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, got.Retryable)
			}
			if !errors.Is(got, tc.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}

	if ClassifyError(nil) != nil {
		t.Error("nil error should classify to nil")
	}
}

func TestClassifyError_KeepsExistingClassification(t *testing.T) {
	inner := NewInvalidResponseError("reply was not JSON", nil)
	got := ClassifyError(fmt.Errorf("complete: %w", inner))
	if got != inner {
		t.Errorf("expected wrapped classification to be reused, got %v", got)
	}
	if !got.Retryable {
		t.Error("invalid responses are retryable")
	}
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("api error")
	cases := map[int]ErrorType{
		429: ErrorTypeRateLimit,
		503: ErrorTypeServiceUnavailable,
		500: ErrorTypeServiceUnavailable,
		504: ErrorTypeTimeout,
		401: ErrorTypePermanent,
		404: ErrorTypeResourceNotFound,
		400: ErrorTypeInvalidInput,
	}
	for code, want := range cases {
		if got := ClassifyStatus(code, base); got.Type != want {
			t.Errorf("status %d: expected %v, got %v", code, want, got.Type)
		}
	}
}
