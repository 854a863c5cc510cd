// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"highlight-locator/internal/observability"
	"highlight-locator/internal/textnorm"
)

const (
	llmConfidenceFloor   = 0.7
	llmConfidenceDamping = 0.9

	// minTrailingTokenRunes is the shortest final token trusted without corroboration
	minTrailingTokenRunes = 3
)

// LLMRequest is what the locator asks a model.
type LLMRequest struct {
	SystemPrompt string
	UserPrompt   string
	PluginName   string
}

// LLMMatch is the structured answer a model returns.
type LLMMatch struct {
	Found       bool    `json:"found"`
	MatchedText string  `json:"matchedText"`
	StartOffset int     `json:"startOffset"`
	EndOffset   int     `json:"endOffset"`
	Confidence  float64 `json:"confidence"`
}

// Completer calls a model and returns its structured answer.
type Completer interface {
	Complete(ctx context.Context, req LLMRequest) (*LLMMatch, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req LLMRequest) (*LLMMatch, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req LLMRequest) (*LLMMatch, error) {
	return f(ctx, req)
}

const llmSystemPrompt = `You locate text inside a document. The search text may be paraphrased, ` +
	`truncated or contain typos. Find the passage of the document that expresses the same content ` +
	`and copy it exactly as it appears in the document. Report its character offsets. ` +
	`If no passage matches, answer with found=false.`

// LLMLocator is the last-resort strategy. Everything a model returns is
// re-verified against the document; collaborator failures become nil.
type LLMLocator struct {
	completer Completer
	observer  *observability.StandardObserver
}

// NewLLMLocator creates an LLM-assisted locator. completer may be nil, in
// which case the locator never finds anything.
func NewLLMLocator(completer Completer, observer *observability.StandardObserver) *LLMLocator {
	return &LLMLocator{
		completer: completer,
		observer:  observer,
	}
}

// Name returns the strategy name
func (l *LLMLocator) Name() string {
	return string(StrategyLLM)
}

// Available reports whether a completer is configured.
func (l *LLMLocator) Available() bool {
	return l != nil && l.completer != nil
}

// Attempt implements Locator.
func (l *LLMLocator) Attempt(ctx context.Context, needle, haystack string, opts Options) *Location {
	return l.FindWithLLM(ctx, needle, haystack, opts.LLMContext, opts.PluginName)
}

// FindWithLLM asks the model for a semantically equivalent passage and
// returns it only if it can be verified in documentText.
func (l *LLMLocator) FindWithLLM(ctx context.Context, searchText, documentText, llmContext, pluginName string) (loc *Location) {
	if !l.Available() || searchText == "" || documentText == "" {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			l.observer.Warn("llm_locator", "completer panicked", map[string]interface{}{
				"plugin": pluginName,
				"panic":  fmt.Sprint(r),
			})
			loc = nil
		}
	}()

	match, err := l.completer.Complete(ctx, LLMRequest{
		SystemPrompt: llmSystemPrompt,
		UserPrompt:   buildUserPrompt(searchText, documentText, llmContext),
		PluginName:   pluginName,
	})
	if err != nil {
		l.observer.Warn("llm_locator", "completer failed", map[string]interface{}{
			"plugin": pluginName,
			"error":  err.Error(),
		})
		return nil
	}
	if match == nil || !match.Found || match.MatchedText == "" {
		return nil
	}

	if hasSuspiciousTail(match.MatchedText, searchText) {
		l.observer.Debug("llm_locator", "rejected truncated match", map[string]interface{}{
			"plugin":  pluginName,
			"matched": match.MatchedText,
		})
		return nil
	}

	start, end, ok := verifyMatch(documentText, match)
	if !ok {
		l.observer.Debug("llm_locator", "matched text not in document", map[string]interface{}{
			"plugin":  pluginName,
			"matched": match.MatchedText,
		})
		return nil
	}

	confidence := math.Max(llmConfidenceFloor, clamp01(match.Confidence)*llmConfidenceDamping)
	return NewLocation(documentText, start, end, StrategyLLM, confidence)
}

func buildUserPrompt(searchText, documentText, llmContext string) string {
	var b strings.Builder
	if llmContext != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", llmContext)
	}
	fmt.Fprintf(&b, "Search text:\n%s\n\n", searchText)
	fmt.Fprintf(&b, "Document:\n<<<\n%s\n>>>\n", documentText)
	return b.String()
}

// hasSuspiciousTail reports whether matched ends in a very short token that
// does not begin the needle's last word, which usually means the model cut
// the quote off mid-word.
func hasSuspiciousTail(matched, needle string) bool {
	matchedWords := textnorm.ComparableWords(matched)
	if len(matchedWords) == 0 {
		return false
	}
	last := matchedWords[len(matchedWords)-1]
	if utf8.RuneCountInString(last) >= minTrailingTokenRunes {
		return false
	}
	needleWords := textnorm.ComparableWords(needle)
	if len(needleWords) == 0 {
		return true
	}
	return !strings.HasPrefix(needleWords[len(needleWords)-1], last)
}

// verifyMatch checks the reported offsets as byte and then rune offsets, and
// falls back to a literal search for the matched text.
func verifyMatch(doc string, match *LLMMatch) (int, int, bool) {
	text := match.MatchedText
	s, e := match.StartOffset, match.EndOffset
	if s >= 0 && e <= len(doc) && s < e && doc[s:e] == text {
		return s, e, true
	}

	bs := textnorm.ByteOffset(doc, s, textnorm.UnitRune)
	be := textnorm.ByteOffset(doc, e, textnorm.UnitRune)
	if s >= 0 && bs < be && doc[bs:be] == text {
		return bs, be, true
	}

	if i := strings.Index(doc, text); i >= 0 {
		return i, i + len(text), true
	}
	return 0, 0, false
}
