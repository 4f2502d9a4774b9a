package bubbletea

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/term"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

var _ collapsible = (*SourcesBlock)(nil)

// excerptGraphemes caps the excerpt preview shown under each locator.
const excerptGraphemes = 120

// SourcesBlock lists the citations attached to an answer. It starts
// collapsed and toggles on ToggleMsg.
type SourcesBlock struct {
	sources   []ragchat.Source
	method    string
	collapsed bool
	styles    Styles
}

// NewSourcesBlock creates a collapsed SourcesBlock.
func NewSourcesBlock(sources []ragchat.Source, method string, styles Styles) *SourcesBlock {
	return &SourcesBlock{sources: sources, method: method, collapsed: true, styles: styles}
}

// Collapsed reports whether only the header is shown.
func (b *SourcesBlock) Collapsed() bool {
	return b.collapsed
}

func (b *SourcesBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *SourcesBlock) View(width int) string {
	var sb strings.Builder
	arrow := "▼"
	if b.collapsed {
		arrow = "▶"
	}
	header := fmt.Sprintf("%s Sources (%d)", arrow, len(b.sources))
	if b.method != "" {
		header += " · " + b.method
	}
	sb.WriteString(b.styles.Source.Render(header))
	if b.collapsed {
		return sb.String()
	}
	for i, s := range b.sources {
		prefix := fmt.Sprintf("  %d. ", i+1)
		suffix := ""
		if s.Distance != nil {
			suffix = fmt.Sprintf(" (%.3f)", *s.Distance)
		}
		avail := width - runewidth.StringWidth(prefix) - runewidth.StringWidth(suffix)
		locator := term.Clean(s.Locator)
		if avail > 0 {
			locator = runewidth.Truncate(locator, avail, "…")
		}
		sb.WriteString("\n" + prefix + b.styles.Source.Render(locator) + b.styles.Muted.Render(suffix))
		if preview := excerptPreview(term.Clean(s.Excerpt), excerptGraphemes); preview != "" {
			indent := strings.Repeat(" ", runewidth.StringWidth(prefix))
			if w := width - len(indent); w > 0 {
				preview = runewidth.Truncate(preview, w, "…")
			}
			sb.WriteString("\n" + indent + b.styles.Muted.Render(preview))
		}
	}
	return sb.String()
}

// excerptPreview collapses whitespace and keeps at most limit grapheme
// clusters, appending an ellipsis when it cuts.
func excerptPreview(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	var sb strings.Builder
	state := -1
	for n := 0; s != ""; n++ {
		if n == limit {
			sb.WriteString("…")
			break
		}
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		sb.WriteString(cluster)
	}
	return sb.String()
}
