// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package document loads the text that highlights are located in.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"highlight-locator/internal/paths"
)

// Format identifies how a document's text was obtained.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// Document is loaded text. All offsets reported by the locators are byte
// offsets into Text.
type Document struct {
	Path      string `json:"path" yaml:"path"`
	Format    Format `json:"format" yaml:"format"`
	Text      string `json:"-" yaml:"-"`
	PageCount int    `json:"pageCount,omitempty" yaml:"page_count,omitempty"`
}

// LoadOptions bounds document loading.
type LoadOptions struct {
	// MaxBytes rejects larger text files (0 = no limit)
	MaxBytes int64

	// MaxPages limits how many PDF pages are extracted (0 = all)
	MaxPages int
}

// DefaultLoadOptions returns the stock limits.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		MaxBytes: 32 << 20,
		MaxPages: 200,
	}
}

// FormatOf picks the format from the file extension. Unknown extensions
// are read as plain text.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Load reads the document at path.
func Load(path string, opts LoadOptions) (*Document, error) {
	if err := paths.ValidatePath(path); err != nil {
		return nil, err
	}
	cleanPath := paths.NormalizePath(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	format := FormatOf(cleanPath)
	if format == FormatPDF {
		text, pages, err := extractPDF(cleanPath, opts.MaxPages)
		if err != nil {
			return nil, err
		}
		return &Document{Path: cleanPath, Format: format, Text: text, PageCount: pages}, nil
	}

	if opts.MaxBytes > 0 && info.Size() > opts.MaxBytes {
		return nil, fmt.Errorf("document is %d bytes, limit is %d", info.Size(), opts.MaxBytes)
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open document: %w", err)
	}
	defer f.Close()

	doc, err := LoadReader(cleanPath, f)
	if err != nil {
		return nil, err
	}
	doc.Format = format
	return doc, nil
}

// LoadReader reads a plain text document from r. The text is normalized so
// offsets are stable: a UTF-8 byte order mark is dropped, CRLF line endings
// become LF and invalid UTF-8 is replaced with U+FFFD.
func LoadReader(name string, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read document: %w", err)
	}
	return &Document{Path: name, Format: FormatOf(name), Text: normalizeText(data)}, nil
}

func normalizeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(data)
}
