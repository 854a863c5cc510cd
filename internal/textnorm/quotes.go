// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package textnorm

import (
	"golang.org/x/text/width"
)

// quoteTable maps typographic variants to the ASCII form LLM output usually
// carries. Runes not listed fall through to width folding.
var quoteTable = map[rune]string{
	'\u2018': "'", // left single quotation mark
	'\u2019': "'", // right single quotation mark
	'\u201A': "'", // single low-9 quotation mark
	'\u201B': "'", // single high-reversed-9 quotation mark
	'\u2032': "'", // prime
	'\u00B4': "'", // acute accent
	'`':      "'",
	'\u201C': `"`, // left double quotation mark
	'\u201D': `"`, // right double quotation mark
	'\u201E': `"`, // double low-9 quotation mark
	'\u201F': `"`, // double high-reversed-9 quotation mark
	'\u2033': `"`, // double prime
	'\u2012': "-", // figure dash
	'\u2013': "-", // en dash
	'\u2014': "-", // em dash
	'\u2015': "-", // horizontal bar
	'\u2212': "-", // minus sign
	'\u2026': "...",
	'\u00A0': " ", // no-break space
	'\u2007': " ", // figure space
	'\u2009': " ", // thin space
	'\u202F': " ", // narrow no-break space
}

func foldQuoteRune(r rune) string {
	if out, ok := quoteTable[r]; ok {
		return out
	}
	if r < 0x80 {
		return string(r)
	}
	return width.Fold.String(string(r))
}

// FoldQuotes canonicalizes quote, dash, ellipsis and space variants and keeps
// the mapping back to the original offsets. An ellipsis becomes "..." so the
// normalized text can be longer than the original.
func FoldQuotes(s string) *PositionMap {
	return MapRunes(s, foldQuoteRune)
}

// NormalizeQuotes is FoldQuotes without the position map.
func NormalizeQuotes(s string) string {
	return FoldQuotes(s).Normalized
}
