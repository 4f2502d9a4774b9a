package goldmark

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/ragchat"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

type styles struct {
	bold      lipgloss.Style
	italic    lipgloss.Style
	strike    lipgloss.Style
	heading   lipgloss.Style
	link      lipgloss.Style
	muted     lipgloss.Style
	code      lipgloss.Style
	quoteBar  lipgloss.Style
	tableHead lipgloss.Style
}

func newStyles(theme ragchat.Theme) styles {
	return styles{
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		strike:    lipgloss.NewStyle().Strikethrough(true),
		heading:   lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		link:      lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Underline(true),
		muted:     lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		code:      lipgloss.NewStyle().Background(ansiColor(theme.CodeBg)),
		quoteBar:  lipgloss.NewStyle().Foreground(ansiColor(theme.Source)),
		tableHead: lipgloss.NewStyle().Bold(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *Renderer) render(source []byte, width int) string {
	doc := r.parser.Parse(text.NewReader(source))
	var buf bytes.Buffer
	r.blocks(doc, source, width, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

// blocks renders every child of node, separating siblings with a blank line.
func (r *Renderer) blocks(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c, source, width, buf)
		if c.NextSibling() != nil {
			buf.WriteString("\n")
		}
	}
}

func (r *Renderer) block(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		writeWrapped(buf, r.inlines(n, source), width)

	case *ast.Heading:
		s := r.inlines(n, source)
		if n.Level == 1 {
			s = r.styles.heading.Render(s)
		} else {
			s = r.styles.bold.Render(s)
		}
		writeWrapped(buf, s, width)

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(source)); lang != "" {
			buf.WriteString(r.styles.muted.Render(lang) + "\n")
		}
		r.codeLines(n.Lines(), source, buf)

	case *ast.CodeBlock:
		r.codeLines(n.Lines(), source, buf)

	case *ast.Blockquote:
		var inner bytes.Buffer
		r.blocks(n, source, max(width-2, 10), &inner)
		bar := r.styles.quoteBar.Render("▎") + " "
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			buf.WriteString(bar + line + "\n")
		}

	case *ast.List:
		r.list(n, source, width, buf, 0)

	case *ast.ThematicBreak:
		buf.WriteString(r.styles.muted.Render(strings.Repeat("─", min(width, 40))) + "\n")

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}

	case *east.Table:
		r.table(n, source, buf)

	default:
		r.blocks(node, source, width, buf)
	}
}

func (r *Renderer) codeLines(lines *text.Segments, source []byte, buf *bytes.Buffer) {
	gutter := r.styles.muted.Render("│") + " "
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		buf.WriteString(gutter + r.styles.code.Render(line) + "\n")
	}
}

func (r *Renderer) list(node *ast.List, source []byte, width int, buf *bytes.Buffer, depth int) {
	indent := strings.Repeat("  ", depth)
	num := node.Start
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "• "
		if node.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}

		var pending strings.Builder
		flush := func() {
			if pending.Len() == 0 {
				return
			}
			writeItem(buf, indent, marker, pending.String(), width)
			marker = strings.Repeat(" ", len([]rune(marker)))
			pending.Reset()
		}
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				if pending.Len() > 0 {
					pending.WriteString("\n")
				}
				pending.WriteString(r.inlines(in, source))
			case *ast.List:
				flush()
				r.list(in, source, width, buf, depth+1)
			default:
				var nested bytes.Buffer
				r.block(ic, source, width-len(indent)-2, &nested)
				pending.WriteString(strings.TrimRight(nested.String(), "\n"))
			}
		}
		flush()
	}
}

// writeItem writes a list item, indenting continuation lines under the
// item's text.
func writeItem(buf *bytes.Buffer, indent, marker, content string, width int) {
	prefix := indent + marker
	pad := strings.Repeat(" ", lipgloss.Width(prefix))
	wrapped := lipgloss.NewStyle().Width(max(width-lipgloss.Width(prefix), 10)).Render(content)
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			buf.WriteString(prefix + line + "\n")
			continue
		}
		buf.WriteString(pad + line + "\n")
	}
}

func writeWrapped(buf *bytes.Buffer, s string, width int) {
	buf.WriteString(lipgloss.NewStyle().Width(width).Render(s))
	buf.WriteString("\n")
}

// table renders a GFM table with columns padded to their widest cell.
// Tables are not wrapped.
func (r *Renderer) table(node *east.Table, source []byte, buf *bytes.Buffer) {
	var rows [][]string
	var widths []int
	for row := node.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			s := r.inlines(cell, source)
			if _, ok := row.(*east.TableHeader); ok {
				s = r.styles.tableHead.Render(s)
			}
			if i := len(cells); i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[len(cells)] = max(widths[len(cells)], lipgloss.Width(s))
			cells = append(cells, s)
		}
		rows = append(rows, cells)
	}

	sep := r.styles.muted.Render(" │ ")
	for i, cells := range rows {
		for j, c := range cells {
			if j > 0 {
				buf.WriteString(sep)
			}
			buf.WriteString(c + strings.Repeat(" ", widths[j]-lipgloss.Width(c)))
		}
		buf.WriteString("\n")
		if i == 0 && len(rows) > 1 {
			var rule []string
			for _, w := range widths {
				rule = append(rule, strings.Repeat("─", w))
			}
			buf.WriteString(r.styles.muted.Render(strings.Join(rule, "─┼─")) + "\n")
		}
	}
}

func (r *Renderer) inlines(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(c, source, &buf)
	}
	return buf.String()
}

func (r *Renderer) inline(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		inner := r.inlines(n, source)
		if n.Level == 1 {
			buf.WriteString(r.styles.italic.Render(inner))
		} else {
			buf.WriteString(r.styles.bold.Render(inner))
		}

	case *east.Strikethrough:
		buf.WriteString(r.styles.strike.Render(r.inlines(n, source)))

	case *ast.CodeSpan:
		buf.WriteString(r.styles.code.Render(r.inlines(n, source)))

	case *ast.Link:
		label := r.inlines(n, source)
		dest := string(n.Destination)
		buf.WriteString(r.styles.link.Render(label))
		if label != dest {
			buf.WriteString(" " + r.styles.muted.Render("("+dest+")"))
		}

	case *ast.AutoLink:
		buf.WriteString(r.styles.link.Render(string(n.URL(source))))

	case *ast.Image:
		buf.WriteString(r.styles.italic.Render(r.inlines(n, source)))
		buf.WriteString(" " + r.styles.muted.Render("("+string(n.Destination)+")"))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.inline(c, source, buf)
		}
	}
}
