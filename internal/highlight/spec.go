// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package highlight validates batches of candidate highlights against a
// document. Each candidate describes its span in one of three ways; all are
// converted to a locate.Location before any rule is checked.
package highlight

import (
	"highlight-locator/internal/lines"
	"highlight-locator/internal/locate"
)

// SpecKind identifies how a candidate describes its span.
type SpecKind string

const (
	KindLine   SpecKind = "line"
	KindOffset SpecKind = "offset"
	KindSearch SpecKind = "search"
)

// Spec is implemented by LineSpec, OffsetSpec and SearchSpec only.
type Spec interface {
	Kind() SpecKind
	sealed()
}

// LineSpec is an LLM-style line number plus snippet description.
type LineSpec struct {
	lines.LineSnippetHighlight
}

// OffsetSpec gives byte offsets directly, usually from a previous run.
// QuotedText, when set, must match the document at those offsets.
type OffsetSpec struct {
	StartOffset int
	EndOffset   int
	QuotedText  string
}

// SearchSpec asks for text to be located with the full strategy chain.
// Options overlays the validator's defaults; nil keeps them all.
type SearchSpec struct {
	SearchText string
	Options    *SearchOverrides
}

// malformedSpec stands in for a record that fits none of the shapes, so the
// batch keeps its indices and the validator can report why.
type malformedSpec struct {
	reason string
}

func (LineSpec) Kind() SpecKind      { return KindLine }
func (OffsetSpec) Kind() SpecKind    { return KindOffset }
func (SearchSpec) Kind() SpecKind    { return KindSearch }
func (malformedSpec) Kind() SpecKind { return "" }

func (LineSpec) sealed()      {}
func (OffsetSpec) sealed()    {}
func (SearchSpec) sealed()    {}
func (malformedSpec) sealed() {}

// Candidate is one highlight proposed by a plugin.
type Candidate struct {
	Spec        Spec
	Description string
	Importance  *float64
	Grade       *float64
}

// ValidatedHighlight is a candidate that passed every check.
type ValidatedHighlight struct {
	Index       int             `json:"index" yaml:"index"`
	Kind        SpecKind        `json:"kind" yaml:"kind"`
	Location    locate.Location `json:"location" yaml:"location"`
	Prefix      string          `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Description string          `json:"description" yaml:"description"`
	Importance  float64         `json:"importance" yaml:"importance"`
	Grade       *float64        `json:"grade,omitempty" yaml:"grade,omitempty"`
	IsValid     bool            `json:"isValid" yaml:"is_valid"`
}

// DiscardKind classifies why a candidate was dropped.
type DiscardKind string

const (
	DiscardMalformedInput     DiscardKind = "malformed_input"
	DiscardNotFound           DiscardKind = "not_found"
	DiscardInvariantViolation DiscardKind = "invariant_violation"
)

// Discarded records a dropped candidate.
type Discarded struct {
	Index  int         `json:"index" yaml:"index"`
	Kind   DiscardKind `json:"kind" yaml:"kind"`
	Reason string      `json:"reason" yaml:"reason"`
}

func (d *Discarded) Error() string {
	return string(d.Kind) + ": " + d.Reason
}
