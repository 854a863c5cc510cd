// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"strings"
	"unicode/utf8"

	"highlight-locator/internal/textnorm"
)

// PartialConfig holds the tuning constants of PartialMatcher.
type PartialConfig struct {
	// LongNeedleThreshold is the byte length above which partial matching applies
	LongNeedleThreshold int `yaml:"long_needle_threshold"`

	// MinMatchLength is the shortest candidate fragment accepted, in bytes
	MinMatchLength int `yaml:"min_match_length"`

	// ConfidenceCeiling is the confidence of a fragment covering the whole needle
	ConfidenceCeiling float64 `yaml:"confidence_ceiling"`

	// MaxCandidates bounds the number of fragments tried per search
	MaxCandidates int `yaml:"max_candidates"`

	// MaxScanBytes bounds the document bytes scanned per search across all
	// fragments, so large documents try fewer fragments (0 = no limit)
	MaxScanBytes int `yaml:"max_scan_bytes"`
}

// DefaultPartialConfig returns the stock partial matching constants.
func DefaultPartialConfig() PartialConfig {
	return PartialConfig{
		LongNeedleThreshold: 50,
		MinMatchLength:      30,
		ConfidenceCeiling:   0.7,
		MaxCandidates:       200,
		MaxScanBytes:        64 << 20,
	}
}

// PartialMatcher anchors a long, possibly truncated or reworded quote on the
// longest word-aligned fragment that does occur in the document.
type PartialMatcher struct {
	config PartialConfig
}

// NewPartialMatcher creates a partial matcher
func NewPartialMatcher(config PartialConfig) *PartialMatcher {
	return &PartialMatcher{config: config}
}

// Name returns the strategy name
func (p *PartialMatcher) Name() string {
	return string(StrategyPartial)
}

// IsLongNeedle reports whether needle is long enough for partial matching.
func (p *PartialMatcher) IsLongNeedle(needle string) bool {
	return len(needle) > p.config.LongNeedleThreshold
}

// Attempt implements Locator.
func (p *PartialMatcher) Attempt(_ context.Context, needle, haystack string, opts Options) *Location {
	return p.find(needle, haystack, p.config.MinMatchLength, opts.CaseSensitive)
}

// Find returns the first fragment of needle of at least minMatchLength bytes
// found in haystack. Fragments are generated by dropping trailing words, then
// by sliding contiguous word windows of decreasing size.
func (p *PartialMatcher) Find(needle, haystack string, minMatchLength int) *Location {
	return p.find(needle, haystack, minMatchLength, false)
}

func (p *PartialMatcher) find(needle, haystack string, minMatchLength int, caseSensitive bool) *Location {
	normNeedle := textnorm.NormalizeQuotes(needle)
	words := textnorm.WordSpans(normNeedle)
	if len(words) == 0 {
		return nil
	}
	if minMatchLength <= 0 {
		minMatchLength = 1
	}

	m := textnorm.FoldQuotes(haystack)
	needleRunes := utf8.RuneCountInString(normNeedle)
	budget := p.candidateBudget(len(m.Normalized))
	tried := 0

	// the haystack is folded once; same-width folding keeps its offsets
	// valid for m.Normalized
	var folded string
	if !caseSensitive {
		folded = textnorm.FoldCaseSameWidth(m.Normalized)
	}

	try := func(fragment string) *Location {
		tried++
		nStart := strings.Index(m.Normalized, fragment)
		if nStart < 0 && !caseSensitive {
			nStart = strings.Index(folded, textnorm.FoldCaseSameWidth(fragment))
		}
		if nStart < 0 {
			return nil
		}
		start, end, ok := m.OriginalSpan(nStart, nStart+len(fragment))
		if !ok {
			return nil
		}
		ratio := float64(utf8.RuneCountInString(fragment)) / float64(needleRunes)
		return NewLocation(haystack, start, end, StrategyPartial, p.config.ConfidenceCeiling*ratio)
	}
	exhausted := func() bool {
		return budget > 0 && tried >= budget
	}

	// prefixes, longest first
	for k := len(words); k >= 1; k-- {
		fragment := normNeedle[words[0][0]:words[k-1][1]]
		if len(fragment) < minMatchLength || exhausted() {
			break
		}
		if loc := try(fragment); loc != nil {
			return loc
		}
	}

	// interior windows; prefixes were covered above
	for size := len(words) - 1; size >= 1; size-- {
		for s := 1; s+size <= len(words); s++ {
			if exhausted() {
				return nil
			}
			fragment := normNeedle[words[s][0]:words[s+size-1][1]]
			if len(fragment) < minMatchLength {
				continue
			}
			if loc := try(fragment); loc != nil {
				return loc
			}
		}
	}
	return nil
}

// candidateBudget returns how many fragments may be tried against a document
// of docLen bytes, or 0 for no limit. At least one fragment is always tried.
func (p *PartialMatcher) candidateBudget(docLen int) int {
	budget := p.config.MaxCandidates
	if p.config.MaxScanBytes > 0 && docLen > 0 {
		byScan := max(1, p.config.MaxScanBytes/docLen)
		if budget <= 0 || byScan < budget {
			budget = byScan
		}
	}
	return budget
}
