package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/goldmark"
	"github.com/fwojciec/ragchat/term"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders a streamed answer with markdown formatting.
// Finalized paragraphs (separated by double newline) are rendered once and
// cached; only the trailing unfinalized text is re-rendered on each delta.
type AssistantBlock struct {
	content  strings.Builder
	status   ragchat.TurnStatus
	renderer *goldmark.Renderer
	styles   Styles

	// finalizedRaw is the stable prefix ending at the last double newline.
	finalizedRaw     string
	finalizedByWidth map[int]string
}

// NewAssistantBlock creates a block for an assistant turn.
func NewAssistantBlock(renderer *goldmark.Renderer, styles Styles) *AssistantBlock {
	return &AssistantBlock{
		renderer:         renderer,
		styles:           styles,
		status:           ragchat.TurnPending,
		finalizedByWidth: make(map[int]string),
	}
}

// Sync brings the block up to date with a turn snapshot. Content that
// extends what the block already holds is appended; anything else replaces
// it.
func (b *AssistantBlock) Sync(t ragchat.Turn) {
	b.status = t.Status
	next := term.Clean(t.Content)
	cur := b.content.String()
	switch {
	case next == cur:
		return
	case strings.HasPrefix(next, cur):
		b.content.WriteString(next[len(cur):])
	default:
		b.content.Reset()
		b.content.WriteString(next)
		b.finalizedRaw = ""
		clear(b.finalizedByWidth)
	}
	b.promoteFinalized()
}

// Content returns the raw markdown held by the block.
func (b *AssistantBlock) Content() string {
	return b.content.String()
}

func (b *AssistantBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantBlock) View(width int) string {
	body := b.body(width)
	switch b.status {
	case ragchat.TurnPending:
		if body == "" {
			return b.styles.Muted.Render("Thinking...")
		}
	case ragchat.TurnCancelled:
		label := b.styles.Muted.Render("[cancelled]")
		if body == "" {
			return label
		}
		return body + "\n" + label
	}
	return body
}

func (b *AssistantBlock) body(width int) string {
	finalizedRendered := b.renderFinalized(width)
	trailing := b.trailingRaw()
	if hasUnclosedFence(trailing) {
		// Close fence only for rendering so partial streams display safely.
		trailing += "\n```"
	}
	if trailing == "" {
		return finalizedRendered
	}
	trailingRendered := b.renderer.Render(trailing, width)
	if strings.TrimSpace(trailingRendered) == "" {
		return finalizedRendered
	}
	if finalizedRendered == "" {
		return trailingRendered
	}
	return strings.TrimRight(finalizedRendered, "\n") + "\n\n" + strings.TrimLeft(trailingRendered, "\n")
}

// promoteFinalized finds the last "\n\n" boundary that doesn't fall inside
// an unclosed fenced code block.
func (b *AssistantBlock) promoteFinalized() {
	raw := b.content.String()
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.finalizedRaw {
				b.finalizedRaw = candidate
				clear(b.finalizedByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AssistantBlock) renderFinalized(width int) string {
	if width <= 0 || b.finalizedRaw == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	rendered := b.renderer.Render(b.finalizedRaw, width)
	b.finalizedByWidth[width] = rendered
	return rendered
}

func (b *AssistantBlock) trailingRaw() string {
	raw := b.content.String()
	if b.finalizedRaw == "" {
		return raw
	}
	return strings.TrimPrefix(raw, b.finalizedRaw+"\n\n")
}

// hasUnclosedFence reports an odd number of "```" occurrences. Triple
// backticks inside inline code spans are miscounted.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
