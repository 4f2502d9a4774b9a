// Package term cleans server-supplied text before it is written to a
// terminal. Answers, excerpts and error messages come from scraped documents
// and remote models, so they may carry escape sequences that would restyle
// or retitle the user's terminal.
package term

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Clean strips ANSI escape sequences and control characters. Tabs and
// newlines are kept; CRLF becomes LF and lone carriage returns are dropped.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t', r == '\n':
			b.WriteRune(r)
		case r <= 0x1F, r == 0x7F:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
