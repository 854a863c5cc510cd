// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const skyDoc = "The sky is blue today."

type fakeCompleter struct {
	match *LLMMatch
	err   error
	calls int
	last  LLMRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req LLMRequest) (*LLMMatch, error) {
	f.calls++
	f.last = req
	return f.match, f.err
}

func TestLLMLocator_VerifiedOffsets(t *testing.T) {
	fc := &fakeCompleter{match: &LLMMatch{Found: true, MatchedText: "The sky is blue", StartOffset: 0, EndOffset: 15, Confidence: 0.9}}
	l := NewLLMLocator(fc, nil)

	loc := l.FindWithLLM(context.Background(), "the heavens are azure", skyDoc, "weather claim", "fact-check")
	require.NotNil(t, loc)
	assert.Equal(t, StrategyLLM, loc.Strategy)
	assert.Equal(t, "The sky is blue", loc.QuotedText)
	assert.InDelta(t, 0.81, loc.Confidence, 1e-9)

	assert.Equal(t, "fact-check", fc.last.PluginName)
	assert.Contains(t, fc.last.UserPrompt, "weather claim")
	assert.Contains(t, fc.last.UserPrompt, skyDoc)
}

func TestLLMLocator_ConfidenceFloor(t *testing.T) {
	fc := &fakeCompleter{match: &LLMMatch{Found: true, MatchedText: "sky is blue", StartOffset: 4, EndOffset: 15, Confidence: 0.2}}
	loc := NewLLMLocator(fc, nil).FindWithLLM(context.Background(), "sky is blue", skyDoc, "", "")
	require.NotNil(t, loc)
	assert.Equal(t, 0.7, loc.Confidence)
}

func TestLLMLocator_RecoversWrongOffsets(t *testing.T) {
	fc := &fakeCompleter{match: &LLMMatch{Found: true, MatchedText: "sky is blue", StartOffset: 100, EndOffset: 200, Confidence: 0.8}}
	loc := NewLLMLocator(fc, nil).FindWithLLM(context.Background(), "the heavens are azure", skyDoc, "", "")
	require.NotNil(t, loc)
	assert.Equal(t, 4, loc.StartOffset)
	assert.Equal(t, 15, loc.EndOffset)
}

func TestLLMLocator_RuneOffsets(t *testing.T) {
	doc := "café au lait, au lait"
	// rune offsets of the second occurrence
	fc := &fakeCompleter{match: &LLMMatch{Found: true, MatchedText: "au lait", StartOffset: 14, EndOffset: 21, Confidence: 1}}
	loc := NewLLMLocator(fc, nil).FindWithLLM(context.Background(), "milk coffee", doc, "", "")
	require.NotNil(t, loc)
	assert.Equal(t, 15, loc.StartOffset)
	assert.Equal(t, "au lait", loc.QuotedText)
}

func TestLLMLocator_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		match *LLMMatch
		err   error
	}{
		{"not found", &LLMMatch{Found: false}, nil},
		{"nil match", nil, nil},
		{"hallucinated text", &LLMMatch{Found: true, MatchedText: "the sky was green", StartOffset: 0, EndOffset: 17, Confidence: 1}, nil},
		{"truncated tail", &LLMMatch{Found: true, MatchedText: "The sky is bl", StartOffset: 0, EndOffset: 13, Confidence: 1}, nil},
		{"collaborator error", nil, errors.New("503 service unavailable")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{match: tt.match, err: tt.err}
			loc := NewLLMLocator(fc, nil).FindWithLLM(context.Background(), "the heavens are azure", skyDoc, "", "")
			assert.Nil(t, loc)
			assert.Equal(t, 1, fc.calls)
		})
	}
}

func TestLLMLocator_PanicBecomesNil(t *testing.T) {
	c := CompleterFunc(func(context.Context, LLMRequest) (*LLMMatch, error) {
		panic("boom")
	})
	assert.Nil(t, NewLLMLocator(c, nil).FindWithLLM(context.Background(), "x y z", skyDoc, "", ""))
}

func TestLLMLocator_Unavailable(t *testing.T) {
	l := NewLLMLocator(nil, nil)
	assert.False(t, l.Available())
	assert.Nil(t, l.FindWithLLM(context.Background(), "sky", skyDoc, "", ""))
}

func TestHasSuspiciousTail(t *testing.T) {
	assert.True(t, hasSuspiciousTail("The sky is bl", "the heavens are azure"))
	assert.False(t, hasSuspiciousTail("The sky is bl", "the sky is blue"))
	assert.False(t, hasSuspiciousTail("The sky is blue", "anything at all"))
	assert.False(t, hasSuspiciousTail("we go", "so we go"))
	assert.False(t, hasSuspiciousTail("", "needle"))
}

func TestBuildUserPrompt(t *testing.T) {
	p := buildUserPrompt("needle", "doc body", "")
	assert.False(t, strings.HasPrefix(p, "Context:"))
	assert.Contains(t, p, "Search text:\nneedle")
}
