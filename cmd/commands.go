// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"highlight-locator/internal/formatters"
	"highlight-locator/internal/highlight"
	"highlight-locator/internal/lines"
	"highlight-locator/internal/paths"
	"highlight-locator/internal/version"
)

// LocateCmd finds one piece of approximate text.
type LocateCmd struct {
	app *app

	Doc  string `short:"d" long:"doc" required:"yes" description:"document path, or - for stdin"`
	Text string `short:"t" long:"text" required:"yes" description:"text to locate"`
	All  bool   `long:"all" description:"report every exact or case-insensitive occurrence"`
	SearchFlags
	OutputFlags
}

// Execute runs the locate command.
func (c *LocateCmd) Execute(_ []string) error {
	a := c.app
	if err := a.setup(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Text) == "" {
		return usageErrorf("--text must not be blank")
	}

	doc, err := a.loadDocument(c.Doc)
	if err != nil {
		return err
	}
	opts, err := a.searchOptions(c.Profile, c.LLM)
	if err != nil {
		return err
	}
	service, err := a.newService(opts, c.LLM)
	if err != nil {
		return err
	}

	report := &formatters.Report{
		Mode:     formatters.ModeLocate,
		Document: doc.Path,
		Text:     doc.Text,
		Query:    c.Text,
	}
	if c.All {
		report.Locations = service.LocateAll(a.ctx, c.Text, doc.Text, opts)
	}
	if len(report.Locations) == 0 {
		if loc := service.Locate(a.ctx, c.Text, doc.Text, opts); loc != nil {
			report.Locations = append(report.Locations, loc)
		}
	}
	return a.write(report, c.OutputFlags)
}

// LinesCmd resolves a line-number-plus-snippet highlight.
type LinesCmd struct {
	app *app

	Doc       string `short:"d" long:"doc" required:"yes" description:"document path, or - for stdin"`
	StartLine int    `long:"start-line" description:"0-based line the highlight starts on"`
	Start     string `long:"start" description:"characters the highlight starts with"`
	EndLine   int    `long:"end-line" default:"-1" description:"0-based line the highlight ends on (default: start line)"`
	End       string `long:"end" description:"characters the highlight ends with"`
	Numbered  bool   `long:"numbered" description:"print the document with line numbers instead"`
	OutputFlags
}

// Execute runs the lines command.
func (c *LinesCmd) Execute(_ []string) error {
	a := c.app
	if err := a.setup(); err != nil {
		return err
	}
	doc, err := a.loadDocument(c.Doc)
	if err != nil {
		return err
	}

	locator := lines.NewLocator(doc.Text, a.cfg.Lines, a.observer)
	if c.Numbered {
		fmt.Fprint(a.stdout, locator.NumberedText())
		return nil
	}
	if c.Start == "" || c.End == "" {
		return usageErrorf("--start and --end are required unless --numbered is set")
	}
	endLine := c.EndLine
	if endLine < 0 {
		endLine = c.StartLine
	}

	report := &formatters.Report{
		Mode:     formatters.ModeLines,
		Document: doc.Path,
		Text:     doc.Text,
		Line: locator.CreateHighlight(lines.LineSnippetHighlight{
			StartLineIndex:  c.StartLine,
			StartCharacters: c.Start,
			EndLineIndex:    endLine,
			EndCharacters:   c.End,
		}),
	}
	return a.write(report, c.OutputFlags)
}

// ValidateCmd converts and checks a batch of highlight candidates.
type ValidateCmd struct {
	app *app

	Doc        string `short:"d" long:"doc" required:"yes" description:"document path, or - for stdin"`
	Highlights string `short:"H" long:"highlights" required:"yes" description:"YAML or JSON highlight batch, or - for stdin"`
	SearchFlags
	OutputFlags
}

// Execute runs the validate command.
func (c *ValidateCmd) Execute(_ []string) error {
	a := c.app
	if err := a.setup(); err != nil {
		return err
	}
	if c.Doc == "-" && c.Highlights == "-" {
		return usageErrorf("--doc and --highlights cannot both read stdin")
	}

	doc, err := a.loadDocument(c.Doc)
	if err != nil {
		return err
	}
	data, err := c.readHighlights()
	if err != nil {
		return err
	}
	candidates, err := highlight.DecodeCandidates(data)
	if err != nil {
		return &usageError{err: err}
	}

	opts, err := a.searchOptions(c.Profile, c.LLM)
	if err != nil {
		return err
	}
	service, err := a.newService(opts, c.LLM)
	if err != nil {
		return err
	}

	validator := highlight.NewValidator(a.cfg.HighlightConfig(), service, a.cfg.Lines, opts, a.observer)
	valid, discarded := validator.ValidateAndConvert(a.ctx, candidates, doc.Text)

	report := &formatters.Report{
		Mode:      formatters.ModeValidate,
		Document:  doc.Path,
		Text:      doc.Text,
		Valid:     valid,
		Discarded: discarded,
	}
	return a.write(report, c.OutputFlags)
}

func (c *ValidateCmd) readHighlights() ([]byte, error) {
	if c.Highlights == "-" {
		data, err := io.ReadAll(c.app.stdin)
		if err != nil {
			return nil, fmt.Errorf("cannot read highlights: %w", err)
		}
		return data, nil
	}
	if err := paths.ValidatePath(c.Highlights); err != nil {
		return nil, &usageError{err: err}
	}
	data, err := os.ReadFile(paths.NormalizePath(c.Highlights))
	if err != nil {
		return nil, &usageError{err: fmt.Errorf("cannot read highlights: %w", err)}
	}
	return data, nil
}

// VersionCmd prints build information.
type VersionCmd struct {
	app *app

	JSON bool `long:"json" description:"print version information as JSON"`
}

// Execute runs the version command.
func (c *VersionCmd) Execute(_ []string) error {
	if !c.JSON {
		fmt.Fprintln(c.app.stdout, version.Info())
		return nil
	}
	data, err := json.MarshalIndent(version.Full(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.app.stdout, string(data))
	return nil
}
