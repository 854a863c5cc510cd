// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lowerSameWidth lower-cases r only when that keeps its UTF-8 width, so byte
// offsets computed on the folded text stay valid for the original.
func lowerSameWidth(r rune) rune {
	l := unicode.ToLower(r)
	if l == r || utf8.RuneLen(l) != utf8.RuneLen(r) {
		return r
	}
	return l
}

// FoldCaseSameWidth lower-cases s without changing its byte length.
func FoldCaseSameWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(s[i])
		} else {
			b.WriteRune(lowerSameWidth(r))
		}
		i += size
	}
	return b.String()
}

// IndexFold returns the byte span of the first case-insensitive occurrence of
// sub in s, or (-1, -1). The span length may differ from len(sub).
func IndexFold(s, sub string) (int, int) {
	return indexFoldFrom(s, sub, 0)
}

func indexFoldFrom(s, sub string, from int) (int, int) {
	if sub == "" || from >= len(s) {
		return -1, -1
	}
	first, _ := utf8.DecodeRuneInString(sub)
	n := utf8.RuneCountInString(sub)
	for i := from; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == first || equalFoldRune(r, first) {
			end, count := i, 0
			for count < n && end < len(s) {
				_, rs := utf8.DecodeRuneInString(s[end:])
				end += rs
				count++
			}
			if count < n {
				break
			}
			if strings.EqualFold(s[i:end], sub) {
				return i, end
			}
		}
		i += size
	}
	return -1, -1
}

// equalFoldRune reports whether a and b are equal under simple Unicode case
// folding, the rule strings.EqualFold applies per rune.
func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for f := unicode.SimpleFold(a); f != a; f = unicode.SimpleFold(f) {
		if f == b {
			return true
		}
	}
	return false
}

// AllIndexFold returns every non-overlapping case-insensitive occurrence of sub.
func AllIndexFold(s, sub string) [][2]int {
	var spans [][2]int
	for from := 0; from < len(s); {
		start, end := indexFoldFrom(s, sub, from)
		if start < 0 {
			break
		}
		spans = append(spans, [2]int{start, end})
		from = end
	}
	return spans
}

// OrderedOverlap scores how many runes of needle appear, in order, inside
// window. It also returns the byte span of window between the first and last
// matched rune. Needle runes that cannot be placed are skipped without
// consuming window.
func OrderedOverlap(needle, window string, foldCase bool) (score float64, first, last int) {
	fold := func(r rune) rune { return r }
	if foldCase {
		fold = unicode.ToLower
	}
	nr := []rune(needle)
	for i, r := range nr {
		nr[i] = fold(r)
	}
	if len(nr) == 0 || window == "" {
		return 0, -1, -1
	}

	type pos struct {
		r     rune
		start int
		end   int
	}
	wr := make([]pos, 0, len(window))
	for i := 0; i < len(window); {
		r, size := utf8.DecodeRuneInString(window[i:])
		wr = append(wr, pos{r: fold(r), start: i, end: i + size})
		i += size
	}

	matched, j := 0, 0
	first, last = -1, -1
	for _, r := range nr {
		for k := j; k < len(wr); k++ {
			if wr[k].r == r {
				if first < 0 {
					first = wr[k].start
				}
				last = wr[k].end
				matched++
				j = k + 1
				break
			}
		}
	}
	return float64(matched) / float64(len(nr)), first, last
}

// IsPunctuationOnly reports whether s contains at least one punctuation or
// symbol rune and nothing but punctuation, symbols and spaces.
func IsPunctuationOnly(s string) bool {
	seen := false
	for _, r := range s {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			seen = true
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return seen
}

// IsWordRune reports whether r belongs inside a word.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\''
}

// WordSpans returns the byte spans of the whitespace-separated words of s.
func WordSpans(s string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(s)})
	}
	return spans
}

// ComparableWords lower-cases s, drops punctuation and splits it into words.
func ComparableWords(s string) []string {
	return strings.Fields(StripPunctuation(strings.ToLower(s)))
}

// StripPunctuation removes punctuation runes, keeping whitespace.
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
}

// AlignToRuneStart moves i back until it sits on a rune boundary of s.
func AlignToRuneStart(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
