// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package textnorm

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Unit names the unit an offset is expressed in.
type Unit int

const (
	// UnitByte is a byte offset into the UTF-8 text (the native unit)
	UnitByte Unit = iota
	// UnitRune counts Unicode code points
	UnitRune
	// UnitUTF16 counts UTF-16 code units, as JavaScript string indexes do
	UnitUTF16
)

// String returns the string representation of the unit
func (u Unit) String() string {
	switch u {
	case UnitByte:
		return "byte"
	case UnitRune:
		return "rune"
	case UnitUTF16:
		return "utf16"
	default:
		return "unknown"
	}
}

// ParseUnit parses "byte", "rune" or "utf16".
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "byte", "bytes":
		return UnitByte, nil
	case "rune", "runes", "char", "chars":
		return UnitRune, nil
	case "utf16", "utf-16", "js":
		return UnitUTF16, nil
	}
	return UnitByte, fmt.Errorf("unknown offset unit %q (expected byte, rune or utf16)", s)
}

// ConvertOffset converts a byte offset into text to the requested unit.
func ConvertOffset(text string, byteOffset int, unit Unit) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(text) {
		byteOffset = len(text)
	}
	switch unit {
	case UnitRune:
		return utf8.RuneCountInString(text[:byteOffset])
	case UnitUTF16:
		n := 0
		for _, r := range text[:byteOffset] {
			if l := utf16.RuneLen(r); l > 0 {
				n += l
			} else {
				n++
			}
		}
		return n
	default:
		return byteOffset
	}
}

// ByteOffset converts an offset in unit back to a byte offset into text.
// Offsets past the end clamp to len(text).
func ByteOffset(text string, offset int, unit Unit) int {
	if offset <= 0 {
		return 0
	}
	if unit == UnitByte {
		return min(offset, len(text))
	}
	n := 0
	for i, r := range text {
		if n >= offset {
			return i
		}
		if unit == UnitUTF16 && r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return len(text)
}
