// Package goldmark renders assistant answers, written in markdown, as
// ANSI-styled terminal text. Parsing uses goldmark with the GFM extensions;
// styling uses lipgloss and the ragchat theme.
package goldmark

import (
	"github.com/fwojciec/ragchat"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// DefaultWidth is used when Render is given a non-positive width.
const DefaultWidth = 80

// Renderer turns markdown into styled text. A Renderer is safe for
// concurrent use.
type Renderer struct {
	parser parser.Parser
	styles styles
}

// New returns a Renderer styled with theme.
func New(theme ragchat.Theme) *Renderer {
	md := goldmark.New(goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
	))
	return &Renderer{parser: md.Parser(), styles: newStyles(theme)}
}

// Render parses source and returns styled output. Paragraphs, quotes and
// list items are word-wrapped to width; code blocks are not reflowed.
func (r *Renderer) Render(source string, width int) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return r.render([]byte(source), width)
}

// Render is a convenience for New(theme).Render(source, width).
func Render(source string, width int, theme ragchat.Theme) string {
	return New(theme).Render(source, width)
}
