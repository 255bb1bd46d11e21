// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"parens", "A Study (2024)", "A_Study_2024"},
		{"trailing question mark", "A Study (2024)?", "A_Study_2024"},
		{"path separators", "Cats/Dogs: a \\review", "CatsDogs_a_review"},
		{"whitespace runs", "  deep \t\n learning  ", "deep_learning"},
		{"dropped char between spaces", "a ( b", "a_b"},
		{"dots kept inside", "v1.2 release.", "v1.2_release"},
		{"leading dots", "...hidden", "hidden"},
		{"unicode letters", "Über Größe", "Über_Größe"},
		{"hyphen and underscore", "state-of-the_art", "state-of-the_art"},
		{"empty", "", "untitled"},
		{"only symbols", "?!*<>|", "untitled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.title))
		})
	}
}

func TestSanitize_Truncates(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 400))
	assert.Len(t, got, MaxStemBytes)

	// A two-byte rune straddling the limit is dropped whole.
	got = Sanitize(strings.Repeat("a", MaxStemBytes-1) + "é" + "bbb")
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", MaxStemBytes-1), got)
}

func TestSanitize_TruncationTrimsSeparator(t *testing.T) {
	got := Sanitize(strings.Repeat("a", MaxStemBytes-1) + " tail")
	assert.Equal(t, strings.Repeat("a", MaxStemBytes-1), got)
}
