// Package ircformat removes IRC formatting from wire text before it is shown
// on a terminal.
package ircformat

import (
	"regexp"
	"strings"
)

// IRC control characters
const (
	Bold          = "\x02"
	Italic        = "\x1D"
	Underline     = "\x1F"
	Strikethrough = "\x1E"
	Monospace     = "\x11"
	Color         = "\x03" // followed by fg[,bg] digits
	HexColor      = "\x04" // followed by RRGGBB[,RRGGBB]
	Reverse       = "\x16"
	Reset         = "\x0F"
)

var (
	colorPattern    = regexp.MustCompile("\x03(?:\\d{1,2}(?:,\\d{1,2})?)?")
	hexColorPattern = regexp.MustCompile("\x04(?:[0-9A-Fa-f]{6}(?:,[0-9A-Fa-f]{6})?)?")
	toggles         = strings.NewReplacer(
		Bold, "", Italic, "", Underline, "", Strikethrough, "",
		Monospace, "", Reverse, "", Reset, "",
	)
)

// StripIRCCodes removes all IRC formatting control characters from text
func StripIRCCodes(input string) string {
	if input == "" {
		return input
	}
	result := colorPattern.ReplaceAllString(input, "")
	result = hexColorPattern.ReplaceAllString(result, "")
	return toggles.Replace(result)
}

// HasIRCCodes reports whether input carries any formatting
func HasIRCCodes(input string) bool {
	return StripIRCCodes(input) != input
}

// Sanitize strips formatting and replaces any remaining control character,
// such as a terminal escape, with '?'
func Sanitize(input string) string {
	stripped := StripIRCCodes(input)
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '?'
		}
		return r
	}, stripped)
}

// SanitizeAll applies Sanitize to every element of in, returning a new slice
func SanitizeAll(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Sanitize(s)
	}
	return out
}
