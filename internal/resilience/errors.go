// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package resilience classifies collaborator errors and provides retry and
// circuit breaking for calls that leave the process, such as model requests.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Temporary network issues
	ErrorTypePermanent                    // Invalid credentials, permissions
	ErrorTypeTimeout                      // Request timeouts
	ErrorTypeRateLimit                    // API rate limiting
	ErrorTypeQuotaExceeded                // Quotas exceeded
	ErrorTypeServiceUnavailable           // Model backend overloaded or down
	ErrorTypeInvalidInput                 // Bad request or unparseable response
	ErrorTypeResourceNotFound             // Unknown model
	ErrorTypeCanceled                     // Caller gave up
	ErrorTypeCircuitOpen                  // Rejected by an open breaker
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeRateLimit:
		return "RateLimit"
	case ErrorTypeQuotaExceeded:
		return "QuotaExceeded"
	case ErrorTypeServiceUnavailable:
		return "ServiceUnavailable"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypeResourceNotFound:
		return "ResourceNotFound"
	case ErrorTypeCanceled:
		return "Canceled"
	case ErrorTypeCircuitOpen:
		return "CircuitOpen"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

func classified(err error, t ErrorType, retryable bool, label string) *ClassifiedError {
	return &ClassifiedError{
		Original:  err,
		Type:      t,
		Message:   fmt.Sprintf("%s: %v", label, err),
		Retryable: retryable,
	}
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var already *ClassifiedError
	if errors.As(err, &already) {
		return already
	}

	var open *OpenError
	if errors.As(err, &open) {
		return classified(err, ErrorTypeCircuitOpen, false, "Circuit open")
	}

	if errors.Is(err, context.Canceled) {
		return classified(err, ErrorTypeCanceled, false, "Canceled")
	}

	if isTimeoutError(err) {
		return classified(err, ErrorTypeTimeout, true, "Timeout error")
	}

	if isNetworkError(err) {
		return classified(err, ErrorTypeTransient, true, "Network error")
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "resource_exhausted") || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests"):
		return classified(err, ErrorTypeRateLimit, true, "Rate limit exceeded")

	case strings.Contains(errStr, "service unavailable") || strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "internal server error"):
		return classified(err, ErrorTypeServiceUnavailable, true, "Service unavailable")

	case strings.Contains(errStr, "quota exceeded"):
		return classified(err, ErrorTypeQuotaExceeded, false, "Quota exceeded")

	case strings.Contains(errStr, "api key") || strings.Contains(errStr, "permission_denied") ||
		strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "forbidden"):
		return classified(err, ErrorTypePermanent, false, "Authentication/authorization error")

	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "does not exist"):
		return classified(err, ErrorTypeResourceNotFound, false, "Resource not found")

	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed") ||
		strings.Contains(errStr, "bad request"):
		return classified(err, ErrorTypeInvalidInput, false, "Invalid input")
	}

	return classified(err, ErrorTypeUnknown, false, "Unknown error")
}

// ClassifyStatus classifies an error that came with an HTTP status code.
func ClassifyStatus(code int, err error) *ClassifiedError {
	switch {
	case code == http.StatusTooManyRequests:
		return classified(err, ErrorTypeRateLimit, true, "Rate limit exceeded")
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return classified(err, ErrorTypeTimeout, true, "Timeout error")
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return classified(err, ErrorTypePermanent, false, "Authentication/authorization error")
	case code == http.StatusNotFound:
		return classified(err, ErrorTypeResourceNotFound, false, "Resource not found")
	case code >= 500:
		return classified(err, ErrorTypeServiceUnavailable, true, "Service unavailable")
	case code >= 400:
		return classified(err, ErrorTypeInvalidInput, false, "Invalid input")
	}
	return ClassifyError(err)
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// NewInvalidResponseError marks a reply that could not be understood. It is
// retryable since models answer differently on a second attempt.
func NewInvalidResponseError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeInvalidInput,
		Message:   message,
		Retryable: true,
	}
}
