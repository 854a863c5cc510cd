// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"strings"

	"highlight-locator/internal/textnorm"
)

const confidenceQuotesNormalized = 0.95

// QuoteLocator searches after folding typographic quotes, dashes, ellipses
// and special spaces in both needle and document. Offsets are mapped back to
// the original document.
type QuoteLocator struct{}

// NewQuoteLocator creates a quote-normalizing locator
func NewQuoteLocator() *QuoteLocator {
	return &QuoteLocator{}
}

// Name returns the strategy name
func (q *QuoteLocator) Name() string {
	return string(StrategyQuotesNormalized)
}

// Attempt implements Locator.
func (q *QuoteLocator) Attempt(_ context.Context, needle, haystack string, opts Options) *Location {
	return q.Find(needle, haystack, opts.CaseSensitive)
}

// Find locates needle in haystack with both sides quote-folded.
func (q *QuoteLocator) Find(needle, haystack string, caseSensitive bool) *Location {
	normNeedle := textnorm.NormalizeQuotes(needle)
	if normNeedle == "" {
		return nil
	}
	m := textnorm.FoldQuotes(haystack)

	nStart, nEnd := -1, -1
	if i := strings.Index(m.Normalized, normNeedle); i >= 0 {
		nStart, nEnd = i, i+len(normNeedle)
	} else if !caseSensitive {
		nStart, nEnd = textnorm.IndexFold(m.Normalized, normNeedle)
	}
	if nStart < 0 {
		return nil
	}

	start, end, ok := m.OriginalSpan(nStart, nEnd)
	if !ok {
		return nil
	}
	return NewLocation(haystack, start, end, StrategyQuotesNormalized, confidenceQuotesNormalized)
}
