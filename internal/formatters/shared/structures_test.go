// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"testing"

	"highlight-locator/internal/formatters"
	"highlight-locator/internal/highlight"
	"highlight-locator/internal/lines"
	"highlight-locator/internal/locate"
	"highlight-locator/internal/textnorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cafeDoc = "café au lait\nthe quick fox"

func TestConvertReport_Units(t *testing.T) {
	report := &formatters.Report{
		Mode:      formatters.ModeLocate,
		Document:  "menu.txt",
		Text:      cafeDoc,
		Query:     "lait",
		Locations: []*locate.Location{locate.NewLocation(cafeDoc, 9, 13, locate.StrategyExact, 1)},
	}

	byteResp := ConvertReport(report, formatters.FormatterOptions{Units: textnorm.UnitByte})
	require.Len(t, byteResp.Results, 1)
	assert.Equal(t, "byte", byteResp.Units)
	assert.Equal(t, 9, byteResp.Results[0].StartOffset)
	assert.Equal(t, 13, byteResp.Results[0].EndOffset)
	assert.Equal(t, 0, byteResp.Results[0].Line)
	assert.Equal(t, 9, byteResp.Results[0].Column)
	assert.Equal(t, "lait", byteResp.Results[0].Text)

	runeResp := ConvertReport(report, formatters.FormatterOptions{Units: textnorm.UnitRune})
	require.Len(t, runeResp.Results, 1)
	assert.Equal(t, 8, runeResp.Results[0].StartOffset)
	assert.Equal(t, 12, runeResp.Results[0].EndOffset)
	assert.Equal(t, 8, runeResp.Results[0].Column)
	assert.Equal(t, 1, runeResp.Found)
}

func TestConvertReport_SecondLine(t *testing.T) {
	report := &formatters.Report{
		Mode:      formatters.ModeLocate,
		Text:      cafeDoc,
		Locations: []*locate.Location{locate.NewLocation(cafeDoc, 18, 23, locate.StrategyFuzzy, 0.7)},
	}
	resp := ConvertReport(report, formatters.FormatterOptions{Units: textnorm.UnitRune})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 17, resp.Results[0].StartOffset)
	assert.Equal(t, 1, resp.Results[0].Line)
	assert.Equal(t, 4, resp.Results[0].Column)
	assert.Equal(t, "quick", resp.Results[0].Text)
}

func TestConvertReport_MinConfidence(t *testing.T) {
	report := &formatters.Report{
		Mode: formatters.ModeLocate,
		Text: cafeDoc,
		Locations: []*locate.Location{
			locate.NewLocation(cafeDoc, 18, 23, locate.StrategyFuzzy, 0.4),
			nil,
		},
	}
	resp := ConvertReport(report, formatters.FormatterOptions{MinConfidence: 0.5})
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, 0, resp.Found)
}

func TestConvertReport_LinesAndValidate(t *testing.T) {
	lineReport := &formatters.Report{
		Mode: formatters.ModeLines,
		Text: cafeDoc,
		Line: &lines.Result{StartOffset: 14, EndOffset: 23, Text: "the quick", Prefix: "lait\n", StartLine: 1, EndLine: 1},
	}
	resp := ConvertReport(lineReport, formatters.FormatterOptions{})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "line-based", resp.Results[0].Strategy)
	assert.Equal(t, 0.85, resp.Results[0].Confidence)
	assert.Equal(t, "lait\n", resp.Results[0].Prefix)

	grade := 70.0
	validateReport := &formatters.Report{
		Mode: formatters.ModeValidate,
		Text: cafeDoc,
		Valid: []highlight.ValidatedHighlight{{
			Index:       2,
			Kind:        highlight.KindSearch,
			Location:    *locate.NewLocation(cafeDoc, 18, 23, locate.StrategyExact, 1),
			Description: "adjective",
			Importance:  50,
			Grade:       &grade,
			IsValid:     true,
		}},
		Discarded: []highlight.Discarded{{Index: 0, Kind: highlight.DiscardNotFound, Reason: "no match"}},
	}
	resp = ConvertReport(validateReport, formatters.FormatterOptions{})
	require.Len(t, resp.Results, 1)
	require.NotNil(t, resp.Results[0].Index)
	assert.Equal(t, 2, *resp.Results[0].Index)
	assert.Equal(t, "search", resp.Results[0].Kind)
	assert.Equal(t, 50.0, *resp.Results[0].Importance)
	assert.Equal(t, 70.0, *resp.Results[0].Grade)
	assert.Len(t, resp.Discarded, 1)
}

func TestConvertReport_Nil(t *testing.T) {
	resp := ConvertReport(nil, formatters.FormatterOptions{Units: textnorm.UnitUTF16})
	assert.Equal(t, "utf16", resp.Units)
	assert.Empty(t, resp.Results)
}
