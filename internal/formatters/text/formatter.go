// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"highlight-locator/internal/formatters"
	"highlight-locator/internal/formatters/shared"
	"highlight-locator/internal/highlight"

	"github.com/fatih/color"
)

// textColumnWidth caps the TEXT column in summary mode
const textColumnWidth = 40

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(report *formatters.Report, options formatters.FormatterOptions) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	response := shared.ConvertReport(report, options)
	if len(response.Results) == 0 && len(response.Discarded) == 0 {
		if response.Query != "" {
			return fmt.Sprintf("No match found for %q.\n", response.Query), nil
		}
		return "No matches found.\n", nil
	}

	var builder strings.Builder
	if options.Verbose {
		for i, span := range response.Results {
			f.appendDetailedSpan(&builder, i, span, options)
		}
	} else if len(response.Results) > 0 {
		f.appendHeaders(&builder, options)
		for _, span := range response.Results {
			f.appendSummaryLine(&builder, span, options)
		}
	}

	if len(response.Discarded) > 0 {
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		for _, d := range response.Discarded {
			f.appendDiscarded(&builder, d, options)
		}
	}

	f.appendFooter(&builder, response, options)
	return builder.String(), nil
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, options formatters.FormatterOptions) {
	header := fmt.Sprintf("%-8s %-22s %-8s %-10s %-14s %s\n",
		"LEVEL", "STRATEGY", "CONF%", "LINE:COL", "OFFSETS", "TEXT")
	if !options.NoColor {
		header = f.colors["white"].Sprint(header)
	}
	builder.WriteString(header)

	separator := strings.Repeat("-", 8+1+22+1+8+1+10+1+14+1+textColumnWidth) + "\n"
	if !options.NoColor {
		separator = f.colors["white"].Sprint(separator)
	}
	builder.WriteString(separator)
}

// appendSummaryLine adds a single line summary to the string builder
func (f *Formatter) appendSummaryLine(builder *strings.Builder, span shared.Span, options formatters.FormatterOptions) {
	level := f.getConfidenceLevel(span.Confidence)

	levelStr := fmt.Sprintf("[%-6s]", level)
	strategyStr := fmt.Sprintf("%-22s", span.Strategy)
	confidenceStr := fmt.Sprintf("%7.2f%%", span.Confidence*100)
	positionStr := fmt.Sprintf("%-10s", fmt.Sprintf("%d:%d", span.Line, span.Column))
	offsetStr := fmt.Sprintf("%-14s", fmt.Sprintf("%d-%d", span.StartOffset, span.EndOffset))
	textStr := f.truncate(span.Text, textColumnWidth)

	if !options.NoColor {
		levelStr = f.levelColor(level).Sprint(levelStr)
		strategyStr = f.colors["cyan"].Sprint(strategyStr)
		confidenceStr = f.colors["blue"].Sprint(confidenceStr)
		positionStr = f.colors["magenta"].Sprint(positionStr)
	}

	fmt.Fprintf(builder, "%s %s %s %s %s %s\n",
		levelStr, strategyStr, confidenceStr, positionStr, offsetStr, textStr)
}

// appendDetailedSpan adds the full information for one span
func (f *Formatter) appendDetailedSpan(builder *strings.Builder, i int, span shared.Span, options formatters.FormatterOptions) {
	index := i
	if span.Index != nil {
		index = *span.Index
	}
	level := f.getConfidenceLevel(span.Confidence)

	f.label(builder, options, "=== Highlight %d ===\n", index)
	f.field(builder, options, "Text", span.Text)
	f.field(builder, options, "Offsets", fmt.Sprintf("%d-%d", span.StartOffset, span.EndOffset))
	f.field(builder, options, "Line", fmt.Sprintf("%d, column %d", span.Line, span.Column))
	if options.NoColor {
		fmt.Fprintf(builder, "Strategy: %s (%.2f%%, %s)\n", span.Strategy, span.Confidence*100, level)
	} else {
		f.colors["cyan"].Fprint(builder, "Strategy: ")
		f.colors["white"].Fprintf(builder, "%s ", span.Strategy)
		f.levelColor(level).Fprintf(builder, "(%.2f%%, %s)\n", span.Confidence*100, level)
	}
	if span.Prefix != "" {
		f.field(builder, options, "Prefix", strings.ReplaceAll(span.Prefix, "\n", `\n`))
	}
	if span.Kind != "" {
		f.field(builder, options, "Kind", span.Kind)
	}
	if span.Description != "" {
		f.field(builder, options, "Description", span.Description)
	}
	if span.Importance != nil {
		f.field(builder, options, "Importance", fmt.Sprintf("%g", *span.Importance))
	}
	if span.Grade != nil {
		f.field(builder, options, "Grade", fmt.Sprintf("%g", *span.Grade))
	}
	builder.WriteString("\n")
}

// appendDiscarded adds one dropped candidate
func (f *Formatter) appendDiscarded(builder *strings.Builder, d highlight.Discarded, options formatters.FormatterOptions) {
	reason := d.Reason
	if !options.Verbose {
		reason = f.truncate(reason, 60)
	}
	levelStr := fmt.Sprintf("[%-6s]", "DROP")
	kindStr := fmt.Sprintf("%-20s", d.Kind)
	if !options.NoColor {
		levelStr = f.colors["red"].Sprint(levelStr)
		kindStr = f.colors["yellow"].Sprint(kindStr)
	}
	fmt.Fprintf(builder, "%s #%-4d %s %s\n", levelStr, d.Index, kindStr, reason)
}

func (f *Formatter) appendFooter(builder *strings.Builder, response shared.Response, options formatters.FormatterOptions) {
	summary := fmt.Sprintf("\n%d located", response.Found)
	if response.Mode == string(formatters.ModeValidate) {
		summary += fmt.Sprintf(", %d discarded", len(response.Discarded))
	}
	if response.Document != "" {
		summary += " in " + response.Document
	}
	summary += fmt.Sprintf(" (offsets in %s)\n", response.Units)
	if !options.NoColor {
		summary = f.colors["white"].Sprint(summary)
	}
	builder.WriteString(summary)
}

func (f *Formatter) label(builder *strings.Builder, options formatters.FormatterOptions, format string, args ...interface{}) {
	if options.NoColor {
		fmt.Fprintf(builder, format, args...)
		return
	}
	f.colors["white"].Fprintf(builder, format, args...)
}

func (f *Formatter) field(builder *strings.Builder, options formatters.FormatterOptions, name, value string) {
	if options.NoColor {
		fmt.Fprintf(builder, "%s: %s\n", name, value)
		return
	}
	f.colors["cyan"].Fprintf(builder, "%s: ", name)
	f.colors["white"].Fprintf(builder, "%s\n", value)
}

// truncate flattens whitespace and cuts s to width runes
func (f *Formatter) truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-3]) + "..."
	}
	return s
}

func (f *Formatter) levelColor(level string) *color.Color {
	switch level {
	case "HIGH":
		return f.colors["green"]
	case "MEDIUM":
		return f.colors["yellow"]
	default:
		return f.colors["red"]
	}
}

// getConfidenceLevel returns the confidence level as a string
func (f *Formatter) getConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "HIGH"
	case confidence >= 0.6:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
