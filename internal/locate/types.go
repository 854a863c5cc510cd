// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package locate resolves an approximate piece of text to an exact byte span
// of a document. Matchers are tried in a fixed precision-first order by
// Service; each returns nil rather than an error when it cannot place the
// text.
package locate

import (
	"context"
	"unicode/utf8"
)

// Strategy names the matching method that produced a Location.
type Strategy string

const (
	StrategyExact                Strategy = "exact"
	StrategyCaseInsensitive      Strategy = "case-insensitive"
	StrategyQuotesNormalized     Strategy = "quotes-normalized"
	StrategyPartial              Strategy = "partial"
	StrategyWhitespaceNormalized Strategy = "whitespace-normalized"
	StrategyFuzzy                Strategy = "fuzzy"
	StrategySlidingWindow        Strategy = "sliding-window"
	StrategyLineBased            Strategy = "line-based"
	StrategyLLM                  Strategy = "llm"
	StrategyExactShort           Strategy = "exact-short"
	StrategyCaseInsensitiveShort Strategy = "case-insensitive-short"
	StrategyPunctuationExact     Strategy = "punctuation-exact"
)

func (s Strategy) String() string {
	return string(s)
}

// Location is a verified span of a document. QuotedText is always
// doc[StartOffset:EndOffset].
type Location struct {
	StartOffset int      `json:"startOffset" yaml:"start_offset"`
	EndOffset   int      `json:"endOffset" yaml:"end_offset"`
	QuotedText  string   `json:"quotedText" yaml:"quoted_text"`
	Strategy    Strategy `json:"strategy" yaml:"strategy"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
}

// Len returns the span length in bytes.
func (l *Location) Len() int {
	if l == nil {
		return 0
	}
	return l.EndOffset - l.StartOffset
}

// NewLocation builds a Location for doc[start:end]. It returns nil when the
// span is empty, out of bounds or splits a rune. Confidence is clamped to
// [0,1].
func NewLocation(doc string, start, end int, strategy Strategy, confidence float64) *Location {
	if start < 0 || end > len(doc) || start >= end {
		return nil
	}
	if !onRuneBoundary(doc, start) || !onRuneBoundary(doc, end) {
		return nil
	}
	return &Location{
		StartOffset: start,
		EndOffset:   end,
		QuotedText:  doc[start:end],
		Strategy:    strategy,
		Confidence:  clamp01(confidence),
	}
}

func onRuneBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// Options controls which strategies Service may use for one search.
type Options struct {
	// NormalizeQuotes enables matching after quote/dash/ellipsis folding
	NormalizeQuotes bool `yaml:"normalize_quotes" json:"normalizeQuotes"`

	// PartialMatch enables the prefix/substring fallback for long needles
	PartialMatch bool `yaml:"partial_match" json:"partialMatch"`

	// CaseSensitive disables case-insensitive fallbacks
	CaseSensitive bool `yaml:"case_sensitive" json:"caseSensitive"`

	// MaxTypos caps the fuzzy edit budget; 0 derives it from needle length
	MaxTypos int `yaml:"max_typos" json:"maxTypos"`

	// UseLLMFallback enables the network-calling last resort
	UseLLMFallback bool `yaml:"use_llm_fallback" json:"useLLMFallback"`

	// LLMContext is free text passed to the model to disambiguate
	LLMContext string `yaml:"llm_context" json:"llmContext,omitempty"`

	// PluginName tags logs and LLM requests, e.g. "fact-check"
	PluginName string `yaml:"plugin_name" json:"pluginName,omitempty"`
}

// DefaultOptions returns quote normalization and partial matching enabled,
// case-insensitive fuzzy matching and no LLM fallback.
func DefaultOptions() Options {
	return Options{
		NormalizeQuotes: true,
		PartialMatch:    true,
	}
}

// Locator is one strategy in the fallback chain.
type Locator interface {
	Name() string
	Attempt(ctx context.Context, needle, haystack string, opts Options) *Location
}
