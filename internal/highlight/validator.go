// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package highlight

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"highlight-locator/internal/lines"
	"highlight-locator/internal/locate"
	"highlight-locator/internal/observability"
	"highlight-locator/internal/parallel"
)

const componentName = "highlight_validator"

// lineBasedConfidence is assigned to spans resolved from line snippets
const lineBasedConfidence = 0.85

// Config holds the validation limits.
type Config struct {
	// MaxQuotedLength is the longest accepted highlight, in characters
	MaxQuotedLength int `yaml:"max_quoted_length"`

	// DefaultLineImportance applies to line-based candidates without importance
	DefaultLineImportance float64 `yaml:"default_line_importance"`

	// DefaultImportance applies to offset and search candidates without importance
	DefaultImportance float64 `yaml:"default_importance"`

	// MinScore and MaxScore bound importance and grade
	MinScore float64 `yaml:"min_score"`
	MaxScore float64 `yaml:"max_score"`

	// Workers is the number of candidates resolved concurrently (0 = CPU count)
	Workers int `yaml:"workers"`

	// RelocateMismatched re-searches the quoted text of an offset candidate
	// whose offsets do not match it
	RelocateMismatched bool `yaml:"relocate_mismatched"`
}

// DefaultConfig returns the stock validation limits.
func DefaultConfig() Config {
	return Config{
		MaxQuotedLength:       1500,
		DefaultLineImportance: 5,
		DefaultImportance:     50,
		MinScore:              0,
		MaxScore:              100,
		RelocateMismatched:    true,
	}
}

// Validator converts and checks candidate highlights. It never fails a
// batch because of a bad item.
type Validator struct {
	config        Config
	service       *locate.Service
	linesConfig   lines.Config
	searchOptions locate.Options
	observer      *observability.StandardObserver
}

// NewValidator creates a validator. service resolves search candidates and
// relocates mismatched offsets; searchOptions are used when a search
// candidate carries none.
func NewValidator(config Config, service *locate.Service, linesConfig lines.Config, searchOptions locate.Options, observer *observability.StandardObserver) *Validator {
	if service == nil {
		service = locate.NewService(locate.WithObserver(observer))
	}
	return &Validator{
		config:        config,
		service:       service,
		linesConfig:   linesConfig,
		searchOptions: searchOptions,
		observer:      observer,
	}
}

// ValidateAndConvert partitions candidates into valid highlights and
// discarded items, both in input order.
func (v *Validator) ValidateAndConvert(ctx context.Context, candidates []Candidate, doc string) ([]ValidatedHighlight, []Discarded) {
	finish := v.observer.StartTiming(componentName, "validate_batch", "")
	lineLocator := lines.NewLocator(doc, v.linesConfig, v.observer)

	type item struct {
		index     int
		candidate Candidate
	}
	items := make([]item, len(candidates))
	for i, c := range candidates {
		items[i] = item{index: i, candidate: c}
	}

	results, _ := parallel.Process(ctx, v.config.Workers, items,
		func(ctx context.Context, it item) (ValidatedHighlight, error) {
			return v.validateOne(ctx, it.index, it.candidate, doc, lineLocator)
		}, v.observer, nil)

	var valid []ValidatedHighlight
	var discarded []Discarded
	for i, r := range results {
		if r.Error == nil {
			valid = append(valid, r.Output)
			continue
		}
		d := toDiscarded(i, r.Error)
		discarded = append(discarded, d)
		v.observer.Warn(componentName, "discarded highlight", map[string]interface{}{
			"index":  d.Index,
			"kind":   string(d.Kind),
			"reason": d.Reason,
		})
	}

	finish(true, map[string]interface{}{
		"valid":     len(valid),
		"discarded": len(discarded),
	})
	return valid, discarded
}

func toDiscarded(index int, err error) Discarded {
	var d *Discarded
	if errors.As(err, &d) {
		out := *d
		out.Index = index
		return out
	}
	// panics and cancellation surface as plain errors
	return Discarded{Index: index, Kind: DiscardInvariantViolation, Reason: err.Error()}
}

func discard(kind DiscardKind, format string, args ...interface{}) error {
	return &Discarded{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (v *Validator) validateOne(ctx context.Context, index int, c Candidate, doc string, lineLocator *lines.Locator) (ValidatedHighlight, error) {
	if c.Spec == nil {
		return ValidatedHighlight{}, discard(DiscardMalformedInput, "missing location")
	}
	if ms, ok := c.Spec.(malformedSpec); ok {
		return ValidatedHighlight{}, discard(DiscardMalformedInput, "%s", ms.reason)
	}
	if strings.TrimSpace(c.Description) == "" {
		return ValidatedHighlight{}, discard(DiscardMalformedInput, "description is required")
	}

	importance := v.config.DefaultImportance
	if c.Spec.Kind() == KindLine {
		importance = v.config.DefaultLineImportance
	}
	if c.Importance != nil {
		importance = *c.Importance
	}
	if !v.inScoreRange(importance) {
		return ValidatedHighlight{}, discard(DiscardMalformedInput, "importance %v outside [%v,%v]", importance, v.config.MinScore, v.config.MaxScore)
	}
	if c.Grade != nil && !v.inScoreRange(*c.Grade) {
		return ValidatedHighlight{}, discard(DiscardMalformedInput, "grade %v outside [%v,%v]", *c.Grade, v.config.MinScore, v.config.MaxScore)
	}

	loc, prefix, err := v.convert(ctx, c.Spec, doc, lineLocator)
	if err != nil {
		return ValidatedHighlight{}, err
	}
	if err := v.checkLocation(loc, doc); err != nil {
		return ValidatedHighlight{}, err
	}
	if prefix == "" {
		prefix = prefixBefore(doc, loc.StartOffset, v.linesConfig.PrefixLength)
	}

	return ValidatedHighlight{
		Index:       index,
		Kind:        c.Spec.Kind(),
		Location:    loc,
		Prefix:      prefix,
		Description: c.Description,
		Importance:  importance,
		Grade:       c.Grade,
		IsValid:     true,
	}, nil
}

// convert turns any spec into a canonical location. Offsets from OffsetSpec
// are carried over unchecked; checkLocation enforces the invariants.
func (v *Validator) convert(ctx context.Context, spec Spec, doc string, lineLocator *lines.Locator) (locate.Location, string, error) {
	switch s := spec.(type) {
	case LineSpec:
		if n := lineLocator.LineCount(); s.StartLineIndex < 0 || s.EndLineIndex >= n || s.StartLineIndex > s.EndLineIndex {
			return locate.Location{}, "", discard(DiscardMalformedInput,
				"line range %d..%d invalid for %d lines", s.StartLineIndex, s.EndLineIndex, n)
		}
		res := lineLocator.CreateHighlight(s.LineSnippetHighlight)
		if res == nil {
			return locate.Location{}, "", discard(DiscardNotFound,
				"could not place snippets %q..%q on lines %d..%d",
				s.StartCharacters, s.EndCharacters, s.StartLineIndex, s.EndLineIndex)
		}
		return locate.Location{
			StartOffset: res.StartOffset,
			EndOffset:   res.EndOffset,
			QuotedText:  res.Text,
			Strategy:    locate.StrategyLineBased,
			Confidence:  lineBasedConfidence,
		}, res.Prefix, nil

	case OffsetSpec:
		if err := checkOffsets(s.StartOffset, s.EndOffset, doc); err != nil {
			return locate.Location{}, "", err
		}
		quoted := s.QuotedText
		if quoted == "" {
			quoted = doc[s.StartOffset:s.EndOffset]
		}
		if v.config.RelocateMismatched && doc[s.StartOffset:s.EndOffset] != quoted {
			found := v.service.Locate(ctx, quoted, doc, v.searchOptions)
			if found == nil {
				return locate.Location{}, "", discard(DiscardNotFound, "quoted text not at offsets %d..%d and not found elsewhere", s.StartOffset, s.EndOffset)
			}
			return *found, "", nil
		}
		return locate.Location{
			StartOffset: s.StartOffset,
			EndOffset:   s.EndOffset,
			QuotedText:  quoted,
			Strategy:    locate.StrategyExact,
			Confidence:  1,
		}, "", nil

	case SearchSpec:
		if strings.TrimSpace(s.SearchText) == "" {
			return locate.Location{}, "", discard(DiscardMalformedInput, "search text is empty")
		}
		found := v.service.Locate(ctx, s.SearchText, doc, s.Options.Apply(v.searchOptions))
		if found == nil {
			return locate.Location{}, "", discard(DiscardNotFound, "search text not found")
		}
		return *found, "", nil
	}
	return locate.Location{}, "", discard(DiscardMalformedInput, "unsupported location kind %T", spec)
}

// checkLocation is the strict gate every highlight passes regardless of how
// it was produced.
func (v *Validator) checkLocation(loc locate.Location, doc string) error {
	if err := checkOffsets(loc.StartOffset, loc.EndOffset, doc); err != nil {
		return err
	}
	switch {
	case loc.QuotedText == "":
		return discard(DiscardInvariantViolation, "quoted text is empty")
	case utf8.RuneCountInString(loc.QuotedText) > v.config.MaxQuotedLength:
		return discard(DiscardInvariantViolation, "quoted text longer than %d characters", v.config.MaxQuotedLength)
	case doc[loc.StartOffset:loc.EndOffset] != loc.QuotedText:
		return discard(DiscardInvariantViolation, "quoted text does not match document at %d..%d", loc.StartOffset, loc.EndOffset)
	}
	return nil
}

func checkOffsets(start, end int, doc string) error {
	switch {
	case start < 0:
		return discard(DiscardMalformedInput, "start offset %d is negative", start)
	case end <= start:
		return discard(DiscardInvariantViolation, "end offset %d is not after start offset %d", end, start)
	case end > len(doc):
		return discard(DiscardMalformedInput, "end offset %d beyond document length %d", end, len(doc))
	case !utf8.RuneStart(doc[start]):
		return discard(DiscardMalformedInput, "start offset %d splits a character", start)
	case end < len(doc) && !utf8.RuneStart(doc[end]):
		return discard(DiscardMalformedInput, "end offset %d splits a character", end)
	}
	return nil
}

func (v *Validator) inScoreRange(f float64) bool {
	return !math.IsNaN(f) && f >= v.config.MinScore && f <= v.config.MaxScore
}

func prefixBefore(doc string, offset, length int) string {
	start := max(0, offset-length)
	for start < offset && !utf8.RuneStart(doc[start]) {
		start++
	}
	return doc[start:offset]
}
