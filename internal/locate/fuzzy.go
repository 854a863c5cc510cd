// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"highlight-locator/internal/textnorm"
)

// FuzzyConfig holds the tuning constants of FuzzyMatcher.
type FuzzyConfig struct {
	// ErrorDivisor derives the default edit budget as runes/ErrorDivisor
	ErrorDivisor int `yaml:"error_divisor"`

	// MinErrors and MaxErrors clamp the derived edit budget
	MinErrors int `yaml:"min_errors"`
	MaxErrors int `yaml:"max_errors"`

	// AcceptRatio is the share of needle runes that may differ when no explicit budget is given
	AcceptRatio float64 `yaml:"accept_ratio"`

	// BitapThreshold is the Bitap give-up score (0.0 = perfection, 1.0 = very loose)
	BitapThreshold float64 `yaml:"bitap_threshold"`

	// WindowFactor sizes the sliding window relative to the needle
	WindowFactor float64 `yaml:"window_factor"`

	// SimilarityFloor is the minimum ordered-overlap score of a sliding window
	SimilarityFloor float64 `yaml:"similarity_floor"`

	// SlidingWindowCeiling caps sliding-window confidence
	SlidingWindowCeiling float64 `yaml:"sliding_window_ceiling"`

	// MaxExpansionFactor bounds word-boundary expansion relative to the needle
	MaxExpansionFactor float64 `yaml:"max_expansion_factor"`

	// MaxSlidingWindowBytes skips the sliding-window scan on larger documents (0 = no limit)
	MaxSlidingWindowBytes int `yaml:"max_sliding_window_bytes"`
}

// DefaultFuzzyConfig returns the stock fuzzy matching constants.
func DefaultFuzzyConfig() FuzzyConfig {
	return FuzzyConfig{
		ErrorDivisor:          8,
		MinErrors:             1,
		MaxErrors:             10,
		AcceptRatio:           0.25,
		BitapThreshold:        0.5,
		WindowFactor:          1.5,
		SimilarityFloor:       0.8,
		SlidingWindowCeiling:  0.7,
		MaxExpansionFactor:    2.0,
		MaxSlidingWindowBytes: 1 << 20,
	}
}

// FuzzyOptions are the per-search knobs of FuzzyMatcher.
type FuzzyOptions struct {
	// MaxErrors caps the accepted edit distance; 0 derives it from the needle
	MaxErrors     int
	CaseSensitive bool

	// NormalizeQuotes also folds quote variants in the normalized stage
	NormalizeQuotes bool
}

// FuzzyMatcher performs typo-tolerant search. Stages, first hit wins:
// exact, case-insensitive, whitespace/quote-normalized, Bitap approximate
// match, then a sliding-window overlap scan.
type FuzzyMatcher struct {
	config FuzzyConfig
	exact  *ExactMatcher
}

// NewFuzzyMatcher creates a fuzzy matcher
func NewFuzzyMatcher(config FuzzyConfig) *FuzzyMatcher {
	return &FuzzyMatcher{
		config: config,
		exact:  NewExactMatcher(),
	}
}

// Name returns the strategy name
func (f *FuzzyMatcher) Name() string {
	return string(StrategyFuzzy)
}

// Attempt implements Locator.
func (f *FuzzyMatcher) Attempt(_ context.Context, needle, haystack string, opts Options) *Location {
	return f.Find(needle, haystack, FuzzyOptions{
		MaxErrors:       opts.MaxTypos,
		CaseSensitive:   opts.CaseSensitive,
		NormalizeQuotes: opts.NormalizeQuotes,
	})
}

// Find locates needle in haystack allowing a bounded number of edits.
func (f *FuzzyMatcher) Find(needle, haystack string, opts FuzzyOptions) *Location {
	if needle == "" || haystack == "" {
		return nil
	}
	if isShortNeedle(needle) || textnorm.IsPunctuationOnly(needle) {
		return f.exact.FindShort(needle, haystack, opts.CaseSensitive)
	}
	if loc := f.exact.find(needle, haystack, opts.CaseSensitive); loc != nil {
		return loc
	}
	if loc := f.findNormalized(needle, haystack, opts); loc != nil {
		return loc
	}
	if loc := f.findBitap(needle, haystack, opts); loc != nil {
		return loc
	}
	return f.findSlidingWindow(needle, haystack, opts.CaseSensitive)
}

// ErrorLimit returns the largest edit distance accepted for needle.
func (f *FuzzyMatcher) ErrorLimit(needle string, maxErrors int) int {
	if maxErrors > 0 {
		return maxErrors
	}
	runes := utf8.RuneCountInString(needle)
	budget := runes / max(f.config.ErrorDivisor, 1)
	budget = min(max(budget, f.config.MinErrors), f.config.MaxErrors)
	return max(budget, int(float64(runes)*f.config.AcceptRatio))
}

// findNormalized matches with whitespace runs collapsed (and quotes folded
// when enabled) on both sides, so text wrapped across lines still matches.
func (f *FuzzyMatcher) findNormalized(needle, haystack string, opts FuzzyOptions) *Location {
	normalize := textnorm.CollapseSpaces
	m := textnorm.FoldWhitespace(haystack)
	if opts.NormalizeQuotes {
		normalize = func(s string) string { return textnorm.CollapseSpaces(textnorm.NormalizeQuotes(s)) }
		quotes := textnorm.FoldQuotes(haystack)
		m = quotes.Compose(textnorm.FoldWhitespace(quotes.Normalized))
	}
	caseSensitive := opts.CaseSensitive

	normNeedle := normalize(needle)
	if normNeedle == "" {
		return nil
	}

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

	dmp := f.newDiffMatchPatch(len(haystack))
	matched := normalize(haystack[start:end])
	confidence := math.Min(f.calibrate(dmp, normNeedle, matched, caseSensitive), confidenceCaseInsensitive)
	return NewLocation(haystack, start, end, StrategyWhitespaceNormalized, confidence)
}

func (f *FuzzyMatcher) findBitap(needle, haystack string, opts FuzzyOptions) *Location {
	pattern, text := needle, haystack
	if !opts.CaseSensitive {
		// same-width folding keeps Bitap's byte offsets valid for haystack
		pattern = textnorm.FoldCaseSameWidth(needle)
		text = textnorm.FoldCaseSameWidth(haystack)
	}

	dmp := f.newDiffMatchPatch(len(text))
	start, end, ok := f.bitapSpan(dmp, text, pattern)
	if !ok {
		return nil
	}

	limit := f.ErrorLimit(needle, opts.MaxErrors)
	start, end = f.refine(dmp, text, pattern, start, end, limit)
	if levenshtein(dmp, pattern, text[start:end]) > limit {
		return nil
	}

	start, end = f.expandToWords(haystack, needle, start, end)
	return NewLocation(haystack, start, end, StrategyFuzzy,
		f.calibrate(dmp, needle, haystack[start:end], opts.CaseSensitive))
}

// bitapSpan runs Bitap on the needle's head and tail (each at most
// MatchMaxBits bytes) and returns the candidate span they delimit.
func (f *FuzzyMatcher) bitapSpan(dmp *diffmatchpatch.DiffMatchPatch, text, pattern string) (int, int, bool) {
	maxBits := dmp.MatchMaxBits
	var start, end int

	if len(pattern) <= maxBits {
		start = dmp.MatchMain(text, pattern, 0)
		if start < 0 {
			return 0, 0, false
		}
		end = start + len(pattern)
	} else {
		head := pattern[:textnorm.AlignToRuneStart(pattern, maxBits)]
		tailStart := alignRuneEnd(pattern, len(pattern)-maxBits)
		tail := pattern[tailStart:]

		start = dmp.MatchMain(text, head, 0)
		if start < 0 {
			return 0, 0, false
		}
		end = start + len(pattern)
		if t := dmp.MatchMain(text, tail, start+tailStart); t >= 0 && t+len(tail) > start {
			end = t + len(tail)
		}
		if float64(end-start) > f.config.MaxExpansionFactor*float64(len(pattern)) {
			end = start + len(pattern)
		}
	}

	start = textnorm.AlignToRuneStart(text, start)
	end = alignRuneEnd(text, min(end, len(text)))
	return start, end, start < end
}

// refine nudges each end of [start, end) by up to radius runes, keeping the
// position with the smallest edit distance to pattern.
func (f *FuzzyMatcher) refine(dmp *diffmatchpatch.DiffMatchPatch, text, pattern string, start, end, radius int) (int, int) {
	best := levenshtein(dmp, pattern, text[start:end])
	for _, s := range runeNeighbours(text, start, radius) {
		if s >= end {
			continue
		}
		if d := levenshtein(dmp, pattern, text[s:end]); d < best {
			best, start = d, s
		}
	}
	for _, e := range runeNeighbours(text, end, radius) {
		if e <= start {
			continue
		}
		if d := levenshtein(dmp, pattern, text[start:e]); d < best {
			best, end = d, e
		}
	}
	return start, end
}

// expandToWords widens [start, end) to whole words when that brings more of
// the needle's words into the match and stays within the expansion bound.
func (f *FuzzyMatcher) expandToWords(haystack, needle string, start, end int) (int, int) {
	ns, ne := start, end
	for ns > 0 {
		r, size := utf8.DecodeLastRuneInString(haystack[:ns])
		if !textnorm.IsWordRune(r) {
			break
		}
		ns -= size
	}
	for ne < len(haystack) {
		r, size := utf8.DecodeRuneInString(haystack[ne:])
		if !textnorm.IsWordRune(r) {
			break
		}
		ne += size
	}
	if ns == start && ne == end {
		return start, end
	}
	if float64(ne-ns) > f.config.MaxExpansionFactor*float64(len(needle)) {
		return start, end
	}

	words := textnorm.ComparableWords(needle)
	if countWords(words, haystack[ns:ne]) > countWords(words, haystack[start:end]) {
		return ns, ne
	}
	return start, end
}

func (f *FuzzyMatcher) findSlidingWindow(needle, haystack string, caseSensitive bool) *Location {
	if f.config.MaxSlidingWindowBytes > 0 && len(haystack) > f.config.MaxSlidingWindowBytes {
		return nil
	}
	width := int(math.Ceil(float64(len(needle)) * f.config.WindowFactor))

	bestScore, bestStart, bestEnd := 0.0, -1, -1
	for _, w := range textnorm.WordSpans(haystack) {
		s := w[0]
		e := len(haystack)
		if s+width < e {
			e = textnorm.AlignToRuneStart(haystack, s+width)
		}
		score, first, last := textnorm.OrderedOverlap(needle, haystack[s:e], !caseSensitive)
		if first < 0 || score <= bestScore {
			continue
		}
		bestScore, bestStart, bestEnd = score, s+first, s+last
		if score == 1 {
			break
		}
	}
	if bestStart < 0 || bestScore < f.config.SimilarityFloor {
		return nil
	}

	dmp := f.newDiffMatchPatch(len(haystack))
	confidence := math.Min(f.config.SlidingWindowCeiling,
		f.calibrate(dmp, needle, haystack[bestStart:bestEnd], caseSensitive))
	return NewLocation(haystack, bestStart, bestEnd, StrategySlidingWindow, confidence)
}

// calibrate converts the edit distance between needle and matched into a
// confidence: 1.0 identical, 0.95 case-only, otherwise the similarity clamped
// to [0.7, 0.95], or at least 0.6 below 0.7.
func (f *FuzzyMatcher) calibrate(dmp *diffmatchpatch.DiffMatchPatch, needle, matched string, caseSensitive bool) float64 {
	if needle == matched {
		return confidenceExact
	}
	if strings.EqualFold(needle, matched) {
		return confidenceCaseInsensitive
	}
	a, b := needle, matched
	if !caseSensitive {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 0
	}
	similarity := 1 - float64(levenshtein(dmp, a, b))/float64(maxLen)
	if similarity < 0.7 {
		return math.Max(0.6, similarity)
	}
	return math.Min(0.95, similarity)
}

func (f *FuzzyMatcher) newDiffMatchPatch(textLen int) *diffmatchpatch.DiffMatchPatch {
	dmp := diffmatchpatch.New()
	dmp.MatchThreshold = f.config.BitapThreshold
	// distance from the start of the document should barely affect the score
	dmp.MatchDistance = 100*textLen + 1000
	return dmp
}

// levenshtein returns the edit distance between a and b in runes.
func levenshtein(dmp *diffmatchpatch.DiffMatchPatch, a, b string) int {
	return dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
}

// runeNeighbours lists the rune boundaries within radius runes of i, nearest
// first, alternating before and after.
func runeNeighbours(s string, i, radius int) []int {
	out := make([]int, 0, 2*radius)
	back, fwd := i, i
	for k := 0; k < radius; k++ {
		if back > 0 {
			_, size := utf8.DecodeLastRuneInString(s[:back])
			back -= size
			out = append(out, back)
		}
		if fwd < len(s) {
			_, size := utf8.DecodeRuneInString(s[fwd:])
			fwd += size
			out = append(out, fwd)
		}
	}
	return out
}

// alignRuneEnd moves i forward until it sits on a rune boundary of s.
func alignRuneEnd(s string, i int) int {
	if i <= 0 {
		return 0
	}
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return min(i, len(s))
}

func countWords(needleWords []string, region string) int {
	present := make(map[string]bool)
	for _, w := range textnorm.ComparableWords(region) {
		present[w] = true
	}
	count := 0
	for _, w := range needleWords {
		if present[w] {
			count++
		}
	}
	return count
}
