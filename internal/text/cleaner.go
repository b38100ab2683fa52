package text

import (
	"regexp"
	"strings"
)

var (
	nonPrintableRe = regexp.MustCompile(`[^\x20-\x7E\n]`)
	newlineRunRe   = regexp.MustCompile(`\s*\n\s*`)
	spaceRunRe     = regexp.MustCompile(`[^\S\n]+`)
)

// Clean normalizes raw extracted text: characters outside printable
// ASCII plus newline are dropped, runs of newlines collapse to a single
// newline, runs of other whitespace collapse to a single space, and the
// result is trimmed. Idempotent.
func Clean(text string) string {
	text = nonPrintableRe.ReplaceAllString(text, "")
	text = newlineRunRe.ReplaceAllString(text, "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
