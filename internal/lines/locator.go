// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package lines turns line-number plus snippet descriptions of a span, the
// form LLMs report reliably, into absolute byte offsets.
package lines

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"highlight-locator/internal/observability"
	"highlight-locator/internal/textnorm"
)

const componentName = "line_locator"

// Config holds the tuning constants of Locator.
type Config struct {
	// NeighborRadius is how many lines above and below are searched
	NeighborRadius int `yaml:"neighbor_radius"`

	// SimilarityFloor is the minimum ordered-overlap score of a similarity window
	SimilarityFloor float64 `yaml:"similarity_floor"`

	// PartialMaxLen and PartialMinLen bound the snippet fragments tried last
	PartialMaxLen int `yaml:"partial_max_len"`
	PartialMinLen int `yaml:"partial_min_len"`

	// FallbackSpan is the length of the span synthesized when the end precedes the start
	FallbackSpan int `yaml:"fallback_span"`

	// LastDitchSpan is the length of the span synthesized when offsets are inconsistent
	LastDitchSpan int `yaml:"last_ditch_span"`

	// PrefixLength is how much text before the start is returned as context
	PrefixLength int `yaml:"prefix_length"`
}

// DefaultConfig returns the stock line locator constants.
func DefaultConfig() Config {
	return Config{
		NeighborRadius:  2,
		SimilarityFloor: 0.75,
		PartialMaxLen:   10,
		PartialMinLen:   3,
		FallbackSpan:    50,
		LastDitchSpan:   100,
		PrefixLength:    30,
	}
}

// LineSnippetHighlight is an approximate span: line numbers plus a few
// characters claimed to open and close it. Lines are 0-based.
type LineSnippetHighlight struct {
	StartLineIndex  int    `json:"startLineIndex" yaml:"startLineIndex"`
	StartCharacters string `json:"startCharacters" yaml:"startCharacters"`
	EndLineIndex    int    `json:"endLineIndex" yaml:"endLineIndex"`
	EndCharacters   string `json:"endCharacters" yaml:"endCharacters"`
}

// Result is a resolved line-based highlight. StartLine and EndLine are the
// lines actually used, which may differ from the request.
type Result struct {
	StartOffset int    `json:"startOffset" yaml:"start_offset"`
	EndOffset   int    `json:"endOffset" yaml:"end_offset"`
	Text        string `json:"text" yaml:"text"`
	Prefix      string `json:"prefix" yaml:"prefix"`
	StartLine   int    `json:"startLine" yaml:"start_line"`
	EndLine     int    `json:"endLine" yaml:"end_line"`
}

// Locator resolves line-based highlights against one document. It holds the
// document and its line offset table and is safe for concurrent use.
type Locator struct {
	doc         string
	lines       []string
	lineOffsets []int
	config      Config
	observer    *observability.StandardObserver
}

// NewLocator splits doc on '\n' and builds the per-line offset table.
func NewLocator(doc string, config Config, observer *observability.StandardObserver) *Locator {
	lines := strings.Split(doc, "\n")
	offsets := make([]int, len(lines))
	pos := 0
	for i, line := range lines {
		offsets[i] = pos
		pos += len(line) + 1
	}
	return &Locator{
		doc:         doc,
		lines:       lines,
		lineOffsets: offsets,
		config:      config,
		observer:    observer,
	}
}

// LineCount returns the number of lines.
func (l *Locator) LineCount() int {
	return len(l.lines)
}

// LineAt returns line i without its newline.
func (l *Locator) LineAt(i int) (string, bool) {
	if i < 0 || i >= len(l.lines) {
		return "", false
	}
	return l.lines[i], true
}

// LineOfOffset returns the 0-based line and byte column of offset.
func (l *Locator) LineOfOffset(offset int) (line, column int) {
	if offset <= 0 {
		return 0, 0
	}
	if offset > len(l.doc) {
		offset = len(l.doc)
	}
	line = sort.Search(len(l.lineOffsets), func(i int) bool { return l.lineOffsets[i] > offset }) - 1
	return line, offset - l.lineOffsets[line]
}

// NumberedText renders the document with "Line N: " prefixes, the format a
// model is shown when asked for line-based highlights.
func (l *Locator) NumberedText() string {
	var b strings.Builder
	for i, line := range l.lines {
		fmt.Fprintf(&b, "Line %d: %s\n", i, line)
	}
	return b.String()
}

// CreateHighlight resolves h to offsets. It returns nil only when the line
// indices are invalid, a snippet cannot be found on or near its line, or no
// usable span can be synthesized.
func (l *Locator) CreateHighlight(h LineSnippetHighlight) *Result {
	if h.StartLineIndex < 0 || h.EndLineIndex < 0 ||
		h.StartLineIndex >= len(l.lines) || h.EndLineIndex >= len(l.lines) ||
		h.StartLineIndex > h.EndLineIndex {
		l.observer.Debug(componentName, "invalid line indices", map[string]interface{}{
			"start_line": h.StartLineIndex,
			"end_line":   h.EndLineIndex,
			"lines":      len(l.lines),
		})
		return nil
	}

	startLine, startPos, _, ok := l.findNear(h.StartCharacters, h.StartLineIndex, 0, false)
	if !ok {
		l.observer.Debug(componentName, "start snippet not found", map[string]interface{}{
			"line":    h.StartLineIndex,
			"snippet": h.StartCharacters,
		})
		return nil
	}

	endLine, _, endPos, ok := l.findNear(h.EndCharacters, h.EndLineIndex, startLine, true)
	if !ok {
		l.observer.Debug(componentName, "end snippet not found", map[string]interface{}{
			"line":    h.EndLineIndex,
			"snippet": h.EndCharacters,
		})
		return nil
	}

	startOffset := l.lineOffsets[startLine] + startPos
	endOffset := l.lineOffsets[endLine] + endPos

	if startLine == endLine && endPos <= startPos {
		lineEnd := l.lineOffsets[startLine] + len(l.lines[startLine])
		endOffset = startOffset + min(l.config.FallbackSpan, lineEnd-startOffset)
		l.observer.Warn(componentName, "end precedes start, using fallback span", map[string]interface{}{
			"line":       startLine,
			"start_char": h.StartCharacters,
			"end_char":   h.EndCharacters,
		})
	}

	endOffset = min(endOffset, len(l.doc))
	startOffset = textnorm.AlignToRuneStart(l.doc, startOffset)
	endOffset = alignForward(l.doc, endOffset)

	if startOffset < 0 || startOffset >= endOffset || endOffset > len(l.doc) {
		if startOffset < 0 || startOffset >= len(l.doc) {
			l.observer.Warn(componentName, "start offset out of range", map[string]interface{}{
				"start_offset": startOffset,
				"doc_length":   len(l.doc),
			})
			return nil
		}
		endOffset = alignForward(l.doc, min(startOffset+l.config.LastDitchSpan, len(l.doc)))
		l.observer.Warn(componentName, "invalid span, using last-ditch span", map[string]interface{}{
			"start_offset": startOffset,
			"end_offset":   endOffset,
		})
	}

	prefixStart := alignForward(l.doc, max(0, startOffset-l.config.PrefixLength))

	return &Result{
		StartOffset: startOffset,
		EndOffset:   endOffset,
		Text:        l.doc[startOffset:endOffset],
		Prefix:      l.doc[prefixStart:startOffset],
		StartLine:   startLine,
		EndLine:     endLine,
	}
}

// findNear searches snippet on line, then on neighbouring lines nearest
// first (+1, -1, +2, -2, ...), never going above minLine. It returns the line
// used and the matched byte span within it.
func (l *Locator) findNear(snippet string, line, minLine int, isEnd bool) (int, int, int, bool) {
	if line >= minLine {
		if start, end, ok := l.findInLine(snippet, l.lines[line], isEnd); ok {
			return line, start, end, true
		}
	}

	for d := 1; d <= l.config.NeighborRadius; d++ {
		for _, candidate := range []int{line + d, line - d} {
			if candidate < minLine || candidate >= len(l.lines) {
				continue
			}
			if start, end, ok := l.findInLine(snippet, l.lines[candidate], isEnd); ok {
				l.observer.Warn(componentName, "snippet found on neighbouring line", map[string]interface{}{
					"requested_line": line,
					"actual_line":    candidate,
					"snippet":        snippet,
				})
				return candidate, start, end, true
			}
		}
	}
	return 0, 0, 0, false
}

// findInLine runs the layered snippet search within one line: exact,
// case-insensitive, trimmed, stripped of whitespace and punctuation,
// similarity window, then the longest fragment of the snippet. The span is
// what matched in the line, so its length may differ from the snippet's.
func (l *Locator) findInLine(snippet, line string, isEnd bool) (int, int, bool) {
	if snippet == "" {
		if isEnd {
			return len(line), len(line), true
		}
		return 0, 0, true
	}

	if start, end, ok := indexEitherCase(line, snippet); ok {
		return start, end, true
	}
	if trimmed := strings.TrimSpace(snippet); trimmed != "" && trimmed != snippet {
		if start, end, ok := indexEitherCase(line, trimmed); ok {
			return start, end, true
		}
	}

	if start, end, ok := findStripped(snippet, line); ok {
		return start, end, true
	}
	if start, end, ok := l.findSimilar(snippet, line); ok {
		return start, end, true
	}
	return l.findFragment(snippet, line)
}

func indexEitherCase(line, snippet string) (int, int, bool) {
	if i := strings.Index(line, snippet); i >= 0 {
		return i, i + len(snippet), true
	}
	if start, end := textnorm.IndexFold(line, snippet); start >= 0 {
		return start, end, true
	}
	return 0, 0, false
}

// findStripped matches with whitespace and punctuation removed and case
// folded, mapping the hit back to the line.
func findStripped(snippet, line string) (int, int, bool) {
	needle := textnorm.StripForComparison(snippet).Normalized
	if needle == "" {
		return 0, 0, false
	}
	m := textnorm.StripForComparison(line)
	i := strings.Index(m.Normalized, needle)
	if i < 0 {
		return 0, 0, false
	}
	return m.OriginalSpan(i, i+len(needle))
}

// findSimilar slides a snippet-sized window over the line and accepts the
// best ordered-overlap score at or above the similarity floor.
func (l *Locator) findSimilar(snippet, line string) (int, int, bool) {
	width := len(snippet)
	if width > len(line) {
		return 0, 0, false
	}
	bestScore, bestStart, bestEnd := 0.0, -1, -1
	for i := range line {
		end := textnorm.AlignToRuneStart(line, min(i+width, len(line)))
		if end <= i {
			continue
		}
		score, first, last := textnorm.OrderedOverlap(snippet, line[i:end], true)
		if first >= 0 && score > bestScore {
			bestScore, bestStart, bestEnd = score, i+first, i+last
		}
	}
	if bestStart < 0 || bestScore < l.config.SimilarityFloor {
		return 0, 0, false
	}
	return bestStart, bestEnd, true
}

// findFragment looks for the longest fragment of the snippet (PartialMaxLen
// down to PartialMinLen runes). The start is shifted back by the fragment's
// offset inside the snippet; the end is where the fragment ends.
func (l *Locator) findFragment(snippet, line string) (int, int, bool) {
	runes := []rune(snippet)
	for size := min(l.config.PartialMaxLen, len(runes)); size >= l.config.PartialMinLen; size-- {
		for s := 0; s+size <= len(runes); s++ {
			fragment := string(runes[s : s+size])
			if strings.TrimSpace(fragment) == "" {
				continue
			}
			i, j := textnorm.IndexFold(line, fragment)
			if i < 0 {
				continue
			}
			shift := len(string(runes[:s]))
			return max(0, i-shift), j, true
		}
	}
	return 0, 0, false
}

// alignForward moves i forward to a rune boundary of s.
func alignForward(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	if i <= 0 {
		return 0
	}
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
