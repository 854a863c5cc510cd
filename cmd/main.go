// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"highlight-locator/internal/config"
	"highlight-locator/internal/document"
	"highlight-locator/internal/formatters"
	_ "highlight-locator/internal/formatters/csv"
	_ "highlight-locator/internal/formatters/json"
	_ "highlight-locator/internal/formatters/text"
	_ "highlight-locator/internal/formatters/yaml"
	"highlight-locator/internal/llm"
	"highlight-locator/internal/locate"
	"highlight-locator/internal/observability"
	"highlight-locator/internal/paths"
	"highlight-locator/internal/textnorm"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// Exit codes
const (
	exitOK         = 0
	exitNotLocated = 1
	exitUsage      = 2
)

// errNothingLocated makes a command exit with exitNotLocated after its
// output has been written.
var errNothingLocated = errors.New("nothing located")

// usageError marks configuration and input problems.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	// API keys may live in a local .env file
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes the selected command and maps its outcome to an
// exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{ctx: ctx, stdin: stdin, stdout: stdout, stderr: stderr}
	opts := newOptions(a)
	a.opts = opts

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = paths.AppName
	_, err := parser.ParseArgs(args)
	if err == nil {
		return exitOK
	}

	var flagsErr *flags.Error
	switch {
	case errors.Is(err, errNothingLocated):
		return exitNotLocated
	case errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp:
		fmt.Fprintln(stdout, flagsErr.Message)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
}

// app carries what every command needs once global flags are parsed.
type app struct {
	ctx    context.Context
	opts   *Options
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	observer *observability.StandardObserver
}

// setup loads configuration and builds the observer. Commands call it first.
func (a *app) setup() error {
	configPath := a.opts.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return &usageError{err: err}
	}
	a.cfg = cfg

	if a.opts.Debug || cfg.Defaults.Debug {
		debug := observability.NewDebugObserver(a.stderr)
		a.observer = debug.StandardObserver
	} else {
		a.observer = observability.NewStandardObserver(observability.ObservabilityWarn, a.stderr)
	}
	return nil
}

// loadDocument reads path, or stdin when path is "-".
func (a *app) loadDocument(path string) (*document.Document, error) {
	var (
		doc *document.Document
		err error
	)
	if path == "-" {
		doc, err = document.LoadReader("stdin", a.stdin)
	} else {
		doc, err = document.Load(path, document.DefaultLoadOptions())
	}
	if err != nil {
		return nil, &usageError{err: err}
	}
	finish := a.observer.StartTiming("cli", "load_document", doc.Path)
	finish(true, map[string]interface{}{"format": doc.Format, "bytes": len(doc.Text), "pages": doc.PageCount})
	return doc, nil
}

// searchOptions resolves the profile and applies the --llm override.
func (a *app) searchOptions(profile string, forceLLM bool) (locate.Options, error) {
	opts, err := a.cfg.SearchOptions(profile)
	if err != nil {
		return opts, &usageError{err: err}
	}
	if forceLLM {
		opts.UseLLMFallback = true
	}
	return opts, nil
}

// newService builds the strategy chain. The model collaborator is attached
// only when some search may use it; a missing API key is fatal when the
// model was requested on the command line and a warning otherwise.
func (a *app) newService(opts locate.Options, forceLLM bool) (*locate.Service, error) {
	serviceOpts := []locate.ServiceOption{
		locate.WithObserver(a.observer),
		locate.WithFuzzyConfig(a.cfg.Fuzzy),
		locate.WithPartialConfig(a.cfg.Partial),
	}

	if opts.UseLLMFallback && (forceLLM || a.cfg.LLM.Enabled) {
		completer, err := llm.NewGeminiCompleter(a.ctx, a.cfg.LLM.Config, a.observer)
		switch {
		case err != nil && forceLLM:
			return nil, &usageError{err: err}
		case err != nil:
			a.observer.Warn("cli", "llm fallback disabled", map[string]interface{}{"error": err.Error()})
		default:
			serviceOpts = append(serviceOpts, locate.WithCompleter(completer))
		}
	}
	return locate.NewService(serviceOpts...), nil
}

// write renders report and exits with errNothingLocated when it is empty.
func (a *app) write(report *formatters.Report, out OutputFlags) error {
	format := out.Format
	if format == "" {
		format = a.cfg.Defaults.Format
	}
	if format == "" {
		format = "text"
	}

	unitName := out.Units
	if unitName == "" {
		unitName = a.cfg.Defaults.Units
	}
	unit, err := textnorm.ParseUnit(unitName)
	if err != nil {
		return &usageError{err: err}
	}

	options := formatters.FormatterOptions{
		Units:         unit,
		Verbose:       out.Verbose,
		NoColor:       a.noColor(out.Output != ""),
		Compact:       out.Compact,
		MinConfidence: out.MinConfidence,
	}
	rendered, err := formatters.Export(format, report, options)
	if err != nil {
		return &usageError{err: err}
	}

	if out.Output != "" {
		if err := paths.ValidatePath(out.Output); err != nil {
			return &usageError{err: err}
		}
		if err := os.WriteFile(paths.NormalizePath(out.Output), []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Fprint(a.stdout, rendered)
		if len(rendered) > 0 && rendered[len(rendered)-1] != '\n' {
			fmt.Fprintln(a.stdout)
		}
	}

	if report.Found() == 0 {
		return errNothingLocated
	}
	return nil
}

// noColor reports whether colored output must be disabled.
func (a *app) noColor(toFile bool) bool {
	if toFile || a.opts.NoColor || a.cfg.Defaults.NoColor {
		return true
	}
	f, ok := a.stdout.(*os.File)
	return !ok || !isTerminal(f)
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
