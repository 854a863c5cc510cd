// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package highlight

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highlight-locator/internal/lines"
	"highlight-locator/internal/locate"
	"highlight-locator/internal/observability"
)

const foxDoc = "The quick brown fox jumps over the lazy dog.\nSecond line here."

func newTestValidator(config Config, observer *observability.StandardObserver) *Validator {
	return NewValidator(config, locate.NewService(locate.WithObserver(observer)), lines.DefaultConfig(), locate.DefaultOptions(), observer)
}

func score(f float64) *float64 { return &f }

func TestValidateAndConvert_PartialFailure(t *testing.T) {
	var buf bytes.Buffer
	observer := observability.NewStandardObserver(observability.ObservabilityWarn, &buf)
	v := newTestValidator(DefaultConfig(), observer)

	candidates := []Candidate{
		{Spec: OffsetSpec{StartOffset: 4, EndOffset: 9, QuotedText: "quick"}, Description: "first"},
		{Spec: OffsetSpec{StartOffset: 19, EndOffset: 10}, Description: "backwards"},
		{Spec: OffsetSpec{StartOffset: 10, EndOffset: 19, QuotedText: "brown fox"}, Description: "third"},
	}

	valid, discarded := v.ValidateAndConvert(context.Background(), candidates, foxDoc)
	require.Len(t, valid, 2)
	require.Len(t, discarded, 1)

	assert.Equal(t, 0, valid[0].Index)
	assert.Equal(t, "quick", valid[0].Location.QuotedText)
	assert.Equal(t, 2, valid[1].Index)
	assert.Equal(t, "brown fox", valid[1].Location.QuotedText)
	assert.Equal(t, "The quick ", valid[1].Prefix)

	assert.Equal(t, 1, discarded[0].Index)
	assert.Equal(t, DiscardInvariantViolation, discarded[0].Kind)
	assert.Equal(t, 1, strings.Count(buf.String(), "discarded highlight"))
}

func TestValidateAndConvert_DefaultImportance(t *testing.T) {
	v := newTestValidator(DefaultConfig(), nil)

	candidates := []Candidate{
		{
			Spec: LineSpec{lines.LineSnippetHighlight{
				StartLineIndex: 1, StartCharacters: "Second",
				EndLineIndex: 1, EndCharacters: "here.",
			}},
			Description: "line based",
		},
		{Spec: OffsetSpec{StartOffset: 35, EndOffset: 43}, Description: "offset"},
		{Spec: SearchSpec{SearchText: "lazy dog"}, Description: "search", Importance: score(80), Grade: score(10)},
	}

	valid, discarded := v.ValidateAndConvert(context.Background(), candidates, foxDoc)
	require.Empty(t, discarded)
	require.Len(t, valid, 3)

	assert.Equal(t, KindLine, valid[0].Kind)
	assert.Equal(t, 5.0, valid[0].Importance)
	assert.Equal(t, "Second line here.", valid[0].Location.QuotedText)
	assert.Equal(t, locate.StrategyLineBased, valid[0].Location.Strategy)

	assert.Equal(t, 50.0, valid[1].Importance)
	assert.Equal(t, "lazy dog", valid[1].Location.QuotedText)

	assert.Equal(t, 80.0, valid[2].Importance)
	require.NotNil(t, valid[2].Grade)
	assert.Equal(t, 10.0, *valid[2].Grade)
	assert.Equal(t, locate.StrategyExact, valid[2].Location.Strategy)

	for _, h := range valid {
		assert.True(t, h.IsValid)
		assert.Equal(t, foxDoc[h.Location.StartOffset:h.Location.EndOffset], h.Location.QuotedText)
	}
}

func TestValidateAndConvert_Rejections(t *testing.T) {
	ok := OffsetSpec{StartOffset: 4, EndOffset: 9, QuotedText: "quick"}
	cases := []struct {
		name      string
		config    func(*Config)
		candidate Candidate
		kind      DiscardKind
	}{
		{
			name:      "missing description",
			candidate: Candidate{Spec: ok, Description: "  "},
			kind:      DiscardMalformedInput,
		},
		{
			name:      "missing location",
			candidate: Candidate{Description: "d"},
			kind:      DiscardMalformedInput,
		},
		{
			name:      "importance above range",
			candidate: Candidate{Spec: ok, Description: "d", Importance: score(101)},
			kind:      DiscardMalformedInput,
		},
		{
			name:      "importance NaN",
			candidate: Candidate{Spec: ok, Description: "d", Importance: score(math.NaN())},
			kind:      DiscardMalformedInput,
		},
		{
			name:      "negative grade",
			candidate: Candidate{Spec: ok, Description: "d", Grade: score(-1)},
			kind:      DiscardMalformedInput,
		},
		{
			name:      "negative start",
			candidate: Candidate{Spec: OffsetSpec{StartOffset: -1, EndOffset: 3}, Description: "d"},
			kind:      DiscardMalformedInput,
		},
		{
			name:      "end beyond document",
			candidate: Candidate{Spec: OffsetSpec{StartOffset: 0, EndOffset: len(foxDoc) + 1}, Description: "d"},
			kind:      DiscardMalformedInput,
		},
		{
			name:      "empty span",
			candidate: Candidate{Spec: OffsetSpec{StartOffset: 5, EndOffset: 5}, Description: "d"},
			kind:      DiscardInvariantViolation,
		},
		{
			name:      "quote too long",
			config:    func(c *Config) { c.MaxQuotedLength = 4 },
			candidate: Candidate{Spec: ok, Description: "d"},
			kind:      DiscardInvariantViolation,
		},
		{
			name:      "mismatch without relocation",
			config:    func(c *Config) { c.RelocateMismatched = false },
			candidate: Candidate{Spec: OffsetSpec{StartOffset: 0, EndOffset: 5, QuotedText: "lazy dog"}, Description: "d"},
			kind:      DiscardInvariantViolation,
		},
		{
			name:      "search not found",
			candidate: Candidate{Spec: SearchSpec{SearchText: "xyzzy qqqq wwww"}, Description: "d"},
			kind:      DiscardNotFound,
		},
		{
			name:      "empty search",
			candidate: Candidate{Spec: SearchSpec{SearchText: " "}, Description: "d"},
			kind:      DiscardMalformedInput,
		},
		{
			name: "line out of range",
			candidate: Candidate{Spec: LineSpec{lines.LineSnippetHighlight{
				StartLineIndex: 5, StartCharacters: "x", EndLineIndex: 5, EndCharacters: "y",
			}}, Description: "d"},
			kind: DiscardMalformedInput,
		},
		{
			name: "line snippet not found",
			candidate: Candidate{Spec: LineSpec{lines.LineSnippetHighlight{
				StartLineIndex: 0, StartCharacters: "zzzz", EndLineIndex: 0, EndCharacters: "dog.",
			}}, Description: "d"},
			kind: DiscardNotFound,
		},
		{
			name:      "malformed record",
			candidate: Candidate{Spec: malformedSpec{reason: "no location"}, Description: "d"},
			kind:      DiscardMalformedInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			if tc.config != nil {
				tc.config(&config)
			}
			v := newTestValidator(config, nil)

			valid, discarded := v.ValidateAndConvert(context.Background(), []Candidate{tc.candidate}, foxDoc)
			assert.Empty(t, valid)
			require.Len(t, discarded, 1)
			assert.Equal(t, tc.kind, discarded[0].Kind, discarded[0].Reason)
			assert.NotEmpty(t, discarded[0].Reason)
		})
	}
}

func TestValidateAndConvert_OffsetsOnCharacterBoundaries(t *testing.T) {
	doc := "Café society…"
	v := newTestValidator(DefaultConfig(), nil)

	candidates := []Candidate{
		{Spec: OffsetSpec{StartOffset: 0, EndOffset: 4}, Description: "end inside é"},
		{Spec: OffsetSpec{StartOffset: 4, EndOffset: 13}, Description: "start inside é"},
		{Spec: OffsetSpec{StartOffset: 0, EndOffset: 5}, Description: "whole word"},
		{Spec: OffsetSpec{StartOffset: 6, EndOffset: len(doc)}, Description: "to the end"},
	}

	valid, discarded := v.ValidateAndConvert(context.Background(), candidates, doc)
	require.Len(t, discarded, 2)
	for i, d := range discarded {
		assert.Equal(t, i, d.Index)
		assert.Equal(t, DiscardMalformedInput, d.Kind)
		assert.Contains(t, d.Reason, "splits a character")
	}

	require.Len(t, valid, 2)
	assert.Equal(t, "Café", valid[0].Location.QuotedText)
	assert.Equal(t, "society…", valid[1].Location.QuotedText)
	for _, h := range valid {
		assert.True(t, utf8.ValidString(h.Location.QuotedText))
	}
}

func TestValidateAndConvert_RelocatesMismatchedQuote(t *testing.T) {
	v := newTestValidator(DefaultConfig(), nil)
	candidates := []Candidate{
		{Spec: OffsetSpec{StartOffset: 0, EndOffset: 5, QuotedText: "lazy dog"}, Description: "moved"},
	}

	valid, discarded := v.ValidateAndConvert(context.Background(), candidates, foxDoc)
	require.Empty(t, discarded)
	require.Len(t, valid, 1)
	assert.Equal(t, 35, valid[0].Location.StartOffset)
	assert.Equal(t, 43, valid[0].Location.EndOffset)
	assert.Equal(t, KindOffset, valid[0].Kind)
}

func TestValidateAndConvert_LargeBatchKeepsOrder(t *testing.T) {
	v := newTestValidator(DefaultConfig(), nil)

	var candidates []Candidate
	for i := 0; i < 50; i++ {
		spec := Spec(OffsetSpec{StartOffset: 4, EndOffset: 9})
		if i%5 == 0 {
			spec = OffsetSpec{StartOffset: 9, EndOffset: 4}
		}
		candidates = append(candidates, Candidate{Spec: spec, Description: "item"})
	}

	valid, discarded := v.ValidateAndConvert(context.Background(), candidates, foxDoc)
	assert.Len(t, valid, 40)
	require.Len(t, discarded, 10)
	for i, d := range discarded {
		assert.Equal(t, i*5, d.Index)
	}
	for i := 1; i < len(valid); i++ {
		assert.Less(t, valid[i-1].Index, valid[i].Index)
	}
}

func TestValidateAndConvert_Empty(t *testing.T) {
	v := newTestValidator(DefaultConfig(), nil)
	valid, discarded := v.ValidateAndConvert(context.Background(), nil, foxDoc)
	assert.Empty(t, valid)
	assert.Empty(t, discarded)
}

func TestDiscarded_Error(t *testing.T) {
	d := &Discarded{Kind: DiscardNotFound, Reason: "search text not found"}
	assert.Equal(t, "not_found: search text not found", d.Error())
}
