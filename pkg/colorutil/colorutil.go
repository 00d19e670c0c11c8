// Package colorutil provides shared color utilities for the picker.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Common overlay colors used throughout the application.
var (
	Black  = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.NRGBA{R: 220, G: 220, B: 0, A: 255}
	Green  = color.NRGBA{R: 0x1E, G: 0xFF, B: 0, A: 255}
)

// ParseARGB parses "#AARRGGBB" or "#RRGGBB" (alpha FF) into a color.
// The leading '#' is optional.
func ParseARGB(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 6:
		hex = "FF" + hex
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q: want #AARRGGBB or #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{
		A: uint8(v >> 24),
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}

// MustParseARGB is ParseARGB for literals; it falls back to Green on bad input.
func MustParseARGB(s string) color.NRGBA {
	c, err := ParseARGB(s)
	if err != nil {
		return Green
	}
	return c
}

// FormatARGB formats c as "#AARRGGBB".
func FormatARGB(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.A, c.R, c.G, c.B)
}
