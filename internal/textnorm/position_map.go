// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package textnorm holds the text transforms shared by the matchers. Every
// transform that can change string length returns a PositionMap so a match
// found in normalized space can be mapped back to the original document.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PositionMap links a normalized string to the original it was derived from.
// For every normalized byte it records the byte span of the original rune (or
// rune run) that produced it.
type PositionMap struct {
	// Original is the untouched input text
	Original string

	// Normalized is the transformed text that searches run against
	Normalized string

	// srcStart and srcEnd have one entry per normalized byte
	srcStart []int
	srcEnd   []int

	// toNormalized has one entry per original byte plus one for len(Original)
	toNormalized []int
}

// OriginalSpan maps the half-open normalized span [nStart, nEnd) back to the
// original text. The returned span always covers whole source runes.
func (m *PositionMap) OriginalSpan(nStart, nEnd int) (int, int, bool) {
	if m == nil || nStart < 0 || nEnd > len(m.Normalized) || nStart >= nEnd {
		return 0, 0, false
	}
	return m.srcStart[nStart], m.srcEnd[nEnd-1], true
}

// NormalizedOffset maps an original byte offset to the offset of the first
// normalized byte produced at or after it.
func (m *PositionMap) NormalizedOffset(original int) int {
	if m == nil || original <= 0 {
		return 0
	}
	if original >= len(m.toNormalized) {
		return len(m.Normalized)
	}
	return m.toNormalized[original]
}

// Compose chains next, which must have been built from m.Normalized, onto m.
// The result maps next.Normalized straight back to m.Original.
func (m *PositionMap) Compose(next *PositionMap) *PositionMap {
	out := &PositionMap{
		Original:     m.Original,
		Normalized:   next.Normalized,
		srcStart:     make([]int, len(next.Normalized)),
		srcEnd:       make([]int, len(next.Normalized)),
		toNormalized: make([]int, len(m.Original)+1),
	}
	for i := range next.Normalized {
		out.srcStart[i] = m.srcStart[next.srcStart[i]]
		out.srcEnd[i] = m.srcEnd[next.srcEnd[i]-1]
	}
	for j := range out.toNormalized {
		out.toNormalized[j] = next.NormalizedOffset(m.NormalizedOffset(j))
	}
	return out
}

// builder accumulates a PositionMap one emitted chunk at a time.
type builder struct {
	m  *PositionMap
	sb strings.Builder
}

func newBuilder(original string) *builder {
	return &builder{m: &PositionMap{
		Original:     original,
		srcStart:     make([]int, 0, len(original)),
		srcEnd:       make([]int, 0, len(original)),
		toNormalized: make([]int, len(original)+1),
	}}
}

// emit writes out for the original span [start, end).
func (b *builder) emit(out string, start, end int) {
	for i := start; i < end; i++ {
		b.m.toNormalized[i] = b.sb.Len()
	}
	for i := 0; i < len(out); i++ {
		b.m.srcStart = append(b.m.srcStart, start)
		b.m.srcEnd = append(b.m.srcEnd, end)
	}
	b.sb.WriteString(out)
}

func (b *builder) finish() *PositionMap {
	b.m.Normalized = b.sb.String()
	b.m.toNormalized[len(b.m.Original)] = len(b.m.Normalized)
	return b.m
}

// MapRunes applies fn to every rune of s and records where each output byte
// came from. fn may return "" to delete a rune.
func MapRunes(s string, fn func(r rune) string) *PositionMap {
	b := newBuilder(s)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		b.emit(fn(r), i, i+size)
		i += size
	}
	return b.finish()
}

// FoldWhitespace collapses every run of whitespace (including newlines) into a
// single ASCII space.
func FoldWhitespace(s string) *PositionMap {
	b := newBuilder(s)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			b.emit(s[i:i+size], i, i+size)
			i += size
			continue
		}
		end := i + size
		for end < len(s) {
			next, nsize := utf8.DecodeRuneInString(s[end:])
			if !unicode.IsSpace(next) {
				break
			}
			end += nsize
		}
		b.emit(" ", i, end)
		i = end
	}
	return b.finish()
}

// StripForComparison lower-cases s and removes whitespace and punctuation.
func StripForComparison(s string) *PositionMap {
	return MapRunes(s, func(r rune) string {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return ""
		}
		return string(lowerSameWidth(r))
	})
}

// CollapseSpaces trims s and folds inner whitespace runs to single spaces.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
