package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Collapse Newlines", "a\n\n\nb", "a\nb"},
		{"Collapse Spaces", "a    b\t\tc", "a b c"},
		{"Spaces Around Newlines", "a  \n  b", "a\nb"},
		{"Strip Non Printable", "café \x07beep’s", "caf beeps"},
		{"Trim", "   hello world \n", "hello world"},
		{"Keeps Newline", "para one.\npara two.", "para one.\npara two."},
		{"Empty", "\x00\x1b", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"a\n\nb  c\td",
		"  leading and trailing  ",
		"unicode ü chars ‽ mixed\n\nwith breaks",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once))
	}
}
