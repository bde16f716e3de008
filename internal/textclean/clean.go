package textclean

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// invisible covers zero-width characters, bidi marks/embeddings/isolates and the BOM.
var invisible = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x180e, Hi: 0x180e, Stride: 1},
		{Lo: 0x200b, Hi: 0x200f, Stride: 1},
		{Lo: 0x202a, Hi: 0x202e, Stride: 1},
		{Lo: 0x2060, Hi: 0x2069, Stride: 1},
		{Lo: 0xfeff, Hi: 0xfeff, Stride: 1},
	},
}

var stripInvisible = runes.Remove(runes.In(invisible))

const punctuation = ",.!?;:\"'-–—"

// Clean normalizes generated tip text: invisible and control characters are
// removed, every whitespace run becomes a single ASCII space, and only ASCII
// letters, digits and a small punctuation allowlist survive. Clean(Clean(s))
// equals Clean(s).
func Clean(s string) string {
	if s == "" {
		return s
	}
	stripped, _, err := transform.String(stripInvisible, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case allowed(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(punctuation, r)
}
