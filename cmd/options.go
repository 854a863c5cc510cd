// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config  string `short:"c" long:"config" description:"config file path (default: search standard locations)"`
	Debug   bool   `long:"debug" description:"step-by-step debug output on stderr"`
	NoColor bool   `long:"no-color" description:"disable colored output"`

	Locate   *LocateCmd   `command:"locate" description:"Find approximate text in a document"`
	Lines    *LinesCmd    `command:"lines" description:"Resolve a line-based highlight to offsets"`
	Validate *ValidateCmd `command:"validate" description:"Validate and convert a batch of highlights"`
	Version  *VersionCmd  `command:"version" description:"Print version information"`
}

// OutputFlags are shared by every command that prints a report.
type OutputFlags struct {
	Format        string  `short:"o" long:"format" description:"output format: text, json, yaml or csv"`
	Units         string  `long:"units" description:"offset unit: byte, rune or utf16"`
	Verbose       bool    `short:"v" long:"verbose" description:"show prefixes, descriptions and full discard reasons"`
	Compact       bool    `long:"compact" description:"single-line JSON"`
	MinConfidence float64 `long:"min-confidence" description:"hide locations below this confidence (0-1)"`
	Output        string  `long:"output" description:"write results to a file instead of stdout"`
}

// SearchFlags select how text is searched.
type SearchFlags struct {
	Profile string `short:"p" long:"profile" description:"named search profile, e.g. fact-check or spelling"`
	LLM     bool   `long:"llm" description:"allow the model fallback (requires an API key)"`
}

// newOptions instantiates every sub-command so flags can follow the command
// name in any order.
func newOptions(a *app) *Options {
	return &Options{
		Locate:   &LocateCmd{app: a},
		Lines:    &LinesCmd{app: a},
		Validate: &ValidateCmd{app: a},
		Version:  &VersionCmd{app: a},
	}
}
