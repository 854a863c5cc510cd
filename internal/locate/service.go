// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"strings"

	"highlight-locator/internal/observability"
	"highlight-locator/internal/textnorm"
)

const componentName = "locate"

// step is one entry of the fallback chain: a locator plus the predicate that
// decides whether it runs for a given search.
type step struct {
	name    string
	enabled func(needle string, opts Options) bool
	locator Locator
}

// Service runs the matching strategies in precision-first order and returns
// the first location any of them accepts.
type Service struct {
	steps    []step
	exact    *ExactMatcher
	observer *observability.StandardObserver

	fuzzyConfig   FuzzyConfig
	partialConfig PartialConfig
	completer     Completer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithObserver sets the observer that receives strategy transition events.
func WithObserver(observer *observability.StandardObserver) ServiceOption {
	return func(s *Service) {
		s.observer = observer
	}
}

// WithCompleter enables the LLM fallback for searches that ask for it.
func WithCompleter(completer Completer) ServiceOption {
	return func(s *Service) {
		s.completer = completer
	}
}

// WithFuzzyConfig overrides the fuzzy matching constants.
func WithFuzzyConfig(config FuzzyConfig) ServiceOption {
	return func(s *Service) {
		s.fuzzyConfig = config
	}
}

// WithPartialConfig overrides the partial matching constants.
func WithPartialConfig(config PartialConfig) ServiceOption {
	return func(s *Service) {
		s.partialConfig = config
	}
}

// NewService creates a location service
func NewService(options ...ServiceOption) *Service {
	s := &Service{
		fuzzyConfig:   DefaultFuzzyConfig(),
		partialConfig: DefaultPartialConfig(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.exact = NewExactMatcher()
	partial := NewPartialMatcher(s.partialConfig)
	llm := NewLLMLocator(s.completer, s.observer)
	always := func(string, Options) bool { return true }

	s.steps = []step{
		{name: s.exact.Name(), enabled: always, locator: s.exact},
		{
			name:    string(StrategyQuotesNormalized),
			enabled: func(_ string, opts Options) bool { return opts.NormalizeQuotes },
			locator: NewQuoteLocator(),
		},
		{
			name:    partial.Name(),
			enabled: func(needle string, opts Options) bool { return opts.PartialMatch && partial.IsLongNeedle(needle) },
			locator: partial,
		},
		{name: string(StrategyFuzzy), enabled: always, locator: NewFuzzyMatcher(s.fuzzyConfig)},
		{
			name:    llm.Name(),
			enabled: func(_ string, opts Options) bool { return opts.UseLLMFallback && llm.Available() },
			locator: llm,
		},
	}
	return s
}

// Strategies lists the chain in the order it is tried.
func (s *Service) Strategies() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.name
	}
	return names
}

// Locate returns the first location accepted by the strategy chain, or nil
// when needle cannot be placed in doc. An empty needle is rejected.
func (s *Service) Locate(ctx context.Context, needle, doc string, opts Options) *Location {
	if strings.TrimSpace(needle) == "" || doc == "" {
		s.observer.Debug(componentName, "empty search rejected", map[string]interface{}{
			"plugin": opts.PluginName,
		})
		return nil
	}

	finish := s.observer.StartTiming(componentName, "locate", opts.PluginName)
	for _, st := range s.steps {
		if !st.enabled(needle, opts) {
			continue
		}
		if loc := st.locator.Attempt(ctx, needle, doc, opts); loc != nil {
			finish(true, map[string]interface{}{
				"strategy":   string(loc.Strategy),
				"confidence": loc.Confidence,
			})
			return loc
		}
		s.observer.Debug(componentName, "strategy failed", map[string]interface{}{
			"strategy":      st.name,
			"plugin":        opts.PluginName,
			"needle_length": len(needle),
		})
	}

	s.observer.Warn(componentName, "text not found", map[string]interface{}{
		"plugin":        opts.PluginName,
		"needle_length": len(needle),
		"needle":        preview(needle),
	})
	finish(false, nil)
	return nil
}

// LocateAll returns every exact or case-insensitive occurrence of needle, for
// callers that need to choose among repeated quotes.
func (s *Service) LocateAll(_ context.Context, needle, doc string, opts Options) []*Location {
	if strings.TrimSpace(needle) == "" {
		return nil
	}
	return s.exact.FindAll(needle, doc, opts.CaseSensitive)
}

func preview(s string) string {
	const limit = 60
	if len(s) <= limit {
		return s
	}
	return s[:textnorm.AlignToRuneStart(s, limit)] + "..."
}
