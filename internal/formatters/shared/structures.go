// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"highlight-locator/internal/formatters"
	"highlight-locator/internal/highlight"
	"highlight-locator/internal/lines"
	"highlight-locator/internal/locate"
	"highlight-locator/internal/textnorm"
)

// Response represents the top-level response structure for JSON/YAML output
type Response struct {
	Mode      string                `json:"mode" yaml:"mode"`
	Document  string                `json:"document,omitempty" yaml:"document,omitempty"`
	Units     string                `json:"units" yaml:"units"`
	Query     string                `json:"query,omitempty" yaml:"query,omitempty"`
	Found     int                   `json:"found" yaml:"found"`
	Results   []Span                `json:"results" yaml:"results"`
	Discarded []highlight.Discarded `json:"discarded,omitempty" yaml:"discarded,omitempty"`
}

// Span is one resolved location with offsets in the requested unit. Line and
// Column are 0-based; Column is measured in the same unit as the offsets.
type Span struct {
	Index       *int     `json:"index,omitempty" yaml:"index,omitempty"`
	StartOffset int      `json:"startOffset" yaml:"start_offset"`
	EndOffset   int      `json:"endOffset" yaml:"end_offset"`
	Line        int      `json:"line" yaml:"line"`
	Column      int      `json:"column" yaml:"column"`
	Text        string   `json:"text" yaml:"text"`
	Prefix      string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Strategy    string   `json:"strategy" yaml:"strategy"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Kind        string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Importance  *float64 `json:"importance,omitempty" yaml:"importance,omitempty"`
	Grade       *float64 `json:"grade,omitempty" yaml:"grade,omitempty"`
}

// lineBasedConfidence is reported for lines-mode results, matching what the
// validator assigns to line-based highlights.
const lineBasedConfidence = 0.85

// ConvertReport flattens report into the structure JSON, YAML and CSV output share.
func ConvertReport(report *formatters.Report, options formatters.FormatterOptions) Response {
	response := Response{
		Units:   options.Units.String(),
		Results: []Span{},
	}
	if report == nil {
		return response
	}
	response.Mode = string(report.Mode)
	response.Document = report.Document
	response.Query = report.Query
	response.Discarded = report.Discarded

	conv := newConverter(report.Text, options.Units)

	for _, loc := range report.Locations {
		if loc == nil || loc.Confidence < options.MinConfidence {
			continue
		}
		response.Results = append(response.Results, conv.span(loc.StartOffset, loc.EndOffset, loc.QuotedText, string(loc.Strategy), loc.Confidence))
	}

	if report.Line != nil {
		s := conv.span(report.Line.StartOffset, report.Line.EndOffset, report.Line.Text, string(locate.StrategyLineBased), lineBasedConfidence)
		s.Prefix = report.Line.Prefix
		response.Results = append(response.Results, s)
	}

	for _, v := range report.Valid {
		if v.Location.Confidence < options.MinConfidence {
			continue
		}
		s := conv.span(v.Location.StartOffset, v.Location.EndOffset, v.Location.QuotedText, string(v.Location.Strategy), v.Location.Confidence)
		index := v.Index
		importance := v.Importance
		s.Index = &index
		s.Prefix = v.Prefix
		s.Kind = string(v.Kind)
		s.Description = v.Description
		s.Importance = &importance
		s.Grade = v.Grade
		response.Results = append(response.Results, s)
	}

	response.Found = len(response.Results)
	return response
}

type converter struct {
	text    string
	unit    textnorm.Unit
	locator *lines.Locator
}

func newConverter(text string, unit textnorm.Unit) *converter {
	return &converter{
		text:    text,
		unit:    unit,
		locator: lines.NewLocator(text, lines.DefaultConfig(), nil),
	}
}

func (c *converter) offset(byteOffset int) int {
	return textnorm.ConvertOffset(c.text, byteOffset, c.unit)
}

func (c *converter) span(start, end int, text, strategy string, confidence float64) Span {
	line, col := c.locator.LineOfOffset(start)
	return Span{
		StartOffset: c.offset(start),
		EndOffset:   c.offset(end),
		Line:        line,
		Column:      c.offset(start) - c.offset(start-col),
		Text:        text,
		Strategy:    strategy,
		Confidence:  confidence,
	}
}
