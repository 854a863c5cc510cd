// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"strings"
	"unicode/utf8"

	"highlight-locator/internal/textnorm"
)

const (
	confidenceExact           = 1.0
	confidenceCaseInsensitive = 0.95
	confidenceShortFold       = 0.9

	// shortNeedleRunes is the length at or below which needles skip the fuzzy engine
	shortNeedleRunes = 3
)

// ExactMatcher performs direct and case-insensitive substring search. The
// first (lowest offset) occurrence always wins.
type ExactMatcher struct{}

// NewExactMatcher creates an exact matcher
func NewExactMatcher() *ExactMatcher {
	return &ExactMatcher{}
}

// Name returns the strategy name
func (m *ExactMatcher) Name() string {
	return string(StrategyExact)
}

// Attempt implements Locator. It honours opts.CaseSensitive.
func (m *ExactMatcher) Attempt(_ context.Context, needle, haystack string, opts Options) *Location {
	return m.find(needle, haystack, opts.CaseSensitive)
}

// Find tries a byte-for-byte match first and falls back to a case-insensitive
// one.
func (m *ExactMatcher) Find(needle, haystack string) *Location {
	return m.find(needle, haystack, false)
}

func (m *ExactMatcher) find(needle, haystack string, caseSensitive bool) *Location {
	if needle == "" || tooLong(needle, haystack) {
		return nil
	}
	if i := strings.Index(haystack, needle); i >= 0 {
		return NewLocation(haystack, i, i+len(needle), StrategyExact, confidenceExact)
	}
	if caseSensitive {
		return nil
	}

	start, end := textnorm.IndexFold(haystack, needle)
	if start < 0 {
		return nil
	}
	if isShortNeedle(needle) {
		return NewLocation(haystack, start, end, StrategyCaseInsensitiveShort, confidenceShortFold)
	}
	return NewLocation(haystack, start, end, StrategyCaseInsensitive, confidenceCaseInsensitive)
}

// FindShort is the dedicated search for very short and punctuation-only
// needles, which are too noisy for approximate matching.
func (m *ExactMatcher) FindShort(needle, haystack string, caseSensitive bool) *Location {
	if needle == "" || tooLong(needle, haystack) {
		return nil
	}
	if i := strings.Index(haystack, needle); i >= 0 {
		strategy := StrategyExactShort
		if textnorm.IsPunctuationOnly(needle) {
			strategy = StrategyPunctuationExact
		}
		return NewLocation(haystack, i, i+len(needle), strategy, confidenceExact)
	}
	if caseSensitive || textnorm.IsPunctuationOnly(needle) {
		return nil
	}
	start, end := textnorm.IndexFold(haystack, needle)
	if start < 0 {
		return nil
	}
	return NewLocation(haystack, start, end, StrategyCaseInsensitiveShort, confidenceShortFold)
}

// FindAll returns every non-overlapping occurrence of needle, exact matches
// taking precedence over case-insensitive ones.
func (m *ExactMatcher) FindAll(needle, haystack string, caseSensitive bool) []*Location {
	if needle == "" || tooLong(needle, haystack) {
		return nil
	}

	var out []*Location
	for from := 0; from < len(haystack); {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			break
		}
		start := from + i
		if loc := NewLocation(haystack, start, start+len(needle), StrategyExact, confidenceExact); loc != nil {
			out = append(out, loc)
		}
		from = start + len(needle)
	}
	if len(out) > 0 || caseSensitive {
		return out
	}

	for _, span := range textnorm.AllIndexFold(haystack, needle) {
		if loc := NewLocation(haystack, span[0], span[1], StrategyCaseInsensitive, confidenceCaseInsensitive); loc != nil {
			out = append(out, loc)
		}
	}
	return out
}

func isShortNeedle(needle string) bool {
	return utf8.RuneCountInString(needle) <= shortNeedleRunes
}

func tooLong(needle, haystack string) bool {
	return utf8.RuneCountInString(needle) > utf8.RuneCountInString(haystack)
}
