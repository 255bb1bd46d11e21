// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxStemBytes bounds the length of a sanitized filename stem.
const MaxStemBytes = 150

// untitled replaces a title that sanitizes to nothing.
const untitled = "untitled"

var underscoreRunRe = regexp.MustCompile(`_{2,}`)

// Sanitize derives a filesystem-safe filename stem from a title.
//
// Letters, digits, '-', '_' and '.' are kept, whitespace runs become a
// single '_', and everything else is dropped. Leading and trailing '_' and
// '.' are trimmed and the result is cut to MaxStemBytes on a rune boundary.
//
//	Sanitize("A Study (2024)?") // "A_Study_2024"
func Sanitize(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}

	name := underscoreRunRe.ReplaceAllString(b.String(), "_")
	name = strings.Trim(name, "_.")
	if len(name) > MaxStemBytes {
		cut := MaxStemBytes
		for cut > 0 && !isRuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimRight(name[:cut], "_.")
	}
	if name == "" {
		return untitled
	}
	return name
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
