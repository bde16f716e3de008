package textclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Eat slowly today.", "Eat slowly today."},
		{"trims", "   Eat slowly.  \n", "Eat slowly."},
		{"collapses whitespace", "Eat\t\tslowly\n\nand  breathe", "Eat slowly and breathe"},
		{"nbsp and separators", "Eat\u00a0slowly\u2028today\u3000now", "Eat slowly today now"},
		{"zero width removed", "mind\u200bful\u200d eat\ufeffing", "mindful eating"},
		{"bidi removed", "\u202aSavor\u202c each\u2066 bite", "Savor each bite"},
		{"emoji dropped without double space", "Enjoy 🍎 fruit", "Enjoy fruit"},
		{"keeps allowed punctuation", `Pause—then ask: "am I full?" It's ok; really - fine – yes!`, `Pause—then ask: "am I full?" It's ok; really - fine – yes!`},
		{"drops other symbols", "Eat (slowly) & #mindfully*", "Eat slowly mindfully"},
		{"non ascii letters dropped", "Café time", "Caf time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Clean(tc.in))
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"Tip:  Try \U0001F37D chewing\u200b 20 times ,  then pause .",
		"      ",
		"a 🍎 🍎 b",
		"\"Quote\" – dash — dash",
		"Line one\r\nLine two\rLine three",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}
