// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactMatcher_Find(t *testing.T) {
	m := NewExactMatcher()

	loc := m.Find("test document", "This is a test document with some text.")
	require.NotNil(t, loc)
	assert.Equal(t, 10, loc.StartOffset)
	assert.Equal(t, 23, loc.EndOffset)
	assert.Equal(t, "test document", loc.QuotedText)
	assert.Equal(t, StrategyExact, loc.Strategy)
	assert.Equal(t, 1.0, loc.Confidence)
}

func TestExactMatcher_EverySubstringIsExact(t *testing.T) {
	m := NewExactMatcher()
	doc := "Alpha beta gamma. Alpha beta delta, épsilon!"

	for i := 0; i < len(doc); i += 3 {
		for j := i + 1; j <= len(doc); j += 5 {
			if !onRuneBoundary(doc, i) || !onRuneBoundary(doc, j) {
				continue
			}
			needle := doc[i:j]
			loc := m.Find(needle, doc)
			require.NotNil(t, loc, "needle %q", needle)
			assert.Equal(t, strings.Index(doc, needle), loc.StartOffset, "needle %q", needle)
			assert.Equal(t, StrategyExact, loc.Strategy)
			assert.Equal(t, 1.0, loc.Confidence)
			assert.Equal(t, doc[loc.StartOffset:loc.EndOffset], loc.QuotedText)
		}
	}
}

func TestExactMatcher_FirstOccurrenceWins(t *testing.T) {
	loc := NewExactMatcher().Find("abc", "xx abc abc")
	require.NotNil(t, loc)
	assert.Equal(t, 3, loc.StartOffset)
}

func TestExactMatcher_CaseInsensitiveFallback(t *testing.T) {
	m := NewExactMatcher()

	loc := m.Find("test document", "This is a TEST document.")
	require.NotNil(t, loc)
	assert.Equal(t, StrategyCaseInsensitive, loc.Strategy)
	assert.Equal(t, "TEST document", loc.QuotedText)
	assert.Equal(t, 0.95, loc.Confidence)

	loc = m.find("test document", "This is a TEST document.", true)
	assert.Nil(t, loc)
}

func TestExactMatcher_NeedleLongerThanHaystack(t *testing.T) {
	assert.Nil(t, NewExactMatcher().Find("a much longer needle", "short"))
	assert.Nil(t, NewExactMatcher().Find("", "anything"))
}

func TestExactMatcher_FindShort(t *testing.T) {
	m := NewExactMatcher()

	tests := []struct {
		name          string
		needle        string
		haystack      string
		caseSensitive bool
		wantStart     int
		wantStrategy  Strategy
		wantConf      float64
	}{
		{"exact short", "Is", "This Is it", false, 5, StrategyExactShort, 1.0},
		{"case-insensitive short", "is", "THIS", false, 2, StrategyCaseInsensitiveShort, 0.9},
		{"punctuation", "...", "Wait... what", false, 4, StrategyPunctuationExact, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := m.FindShort(tt.needle, tt.haystack, tt.caseSensitive)
			require.NotNil(t, loc)
			assert.Equal(t, tt.wantStart, loc.StartOffset)
			assert.Equal(t, tt.wantStrategy, loc.Strategy)
			assert.Equal(t, tt.wantConf, loc.Confidence)
		})
	}

	assert.Nil(t, m.FindShort("is", "THIS", true))
	assert.Nil(t, m.FindShort("?!", "no punctuation here", false))
}

func TestExactMatcher_FindAll(t *testing.T) {
	m := NewExactMatcher()

	locs := m.FindAll("the", "the cat, The dog, the end", false)
	require.Len(t, locs, 2)
	assert.Equal(t, 0, locs[0].StartOffset)
	assert.Equal(t, 18, locs[1].StartOffset)

	locs = m.FindAll("the", "The cat, THE dog", false)
	require.Len(t, locs, 2)
	assert.Equal(t, StrategyCaseInsensitive, locs[0].Strategy)
	assert.Equal(t, "THE", locs[1].QuotedText)

	assert.Empty(t, m.FindAll("the", "The cat", true))
}

func TestNewLocation(t *testing.T) {
	doc := "café au lait"

	assert.Nil(t, NewLocation(doc, -1, 2, StrategyExact, 1))
	assert.Nil(t, NewLocation(doc, 3, 3, StrategyExact, 1))
	assert.Nil(t, NewLocation(doc, 0, len(doc)+1, StrategyExact, 1))
	// splits the é
	assert.Nil(t, NewLocation(doc, 0, 4, StrategyExact, 1))

	loc := NewLocation(doc, 0, 5, StrategyFuzzy, 1.7)
	require.NotNil(t, loc)
	assert.Equal(t, "café", loc.QuotedText)
	assert.Equal(t, 1.0, loc.Confidence)
	assert.Equal(t, 5, loc.Len())

	loc = NewLocation(doc, 0, 5, StrategyFuzzy, -0.2)
	require.NotNil(t, loc)
	assert.Equal(t, 0.0, loc.Confidence)
}
