// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strconv"
	"strings"

	"highlight-locator/internal/formatters"
	"highlight-locator/internal/formatters/shared"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(report *formatters.Report, options formatters.FormatterOptions) (string, error) {
	response := shared.ConvertReport(report, options)

	headers := []string{"Index", "Start", "End", "Line", "Column", "Strategy", "Confidence", "Text"}
	if options.Verbose {
		headers = append(headers, "Prefix", "Description", "Importance")
	}
	rows := []string{strings.Join(headers, ",")}

	for i, span := range response.Results {
		index := i
		if span.Index != nil {
			index = *span.Index
		}
		row := []string{
			strconv.Itoa(index),
			strconv.Itoa(span.StartOffset),
			strconv.Itoa(span.EndOffset),
			strconv.Itoa(span.Line),
			strconv.Itoa(span.Column),
			f.escapeCSVField(span.Strategy),
			fmt.Sprintf("%.2f", span.Confidence),
			f.escapeCSVField(span.Text),
		}
		if options.Verbose {
			importance := ""
			if span.Importance != nil {
				importance = strconv.FormatFloat(*span.Importance, 'f', -1, 64)
			}
			row = append(row,
				f.escapeCSVField(span.Prefix),
				f.escapeCSVField(span.Description),
				importance)
		}
		rows = append(rows, strings.Join(row, ","))
	}

	return strings.Join(rows, "\n"), nil
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prefixes fields a spreadsheet would evaluate as a formula
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
