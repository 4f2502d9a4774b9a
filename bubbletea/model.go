package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/goldmark"
)

var _ tea.Model = Model{}

const helpText = "/context <id>, /contexts, /model <id>, /clear, /help"

// Option configures a Model.
type Option func(*Model)

// WithContextRegistry lets the model list contexts for /contexts and pick
// the first one at startup when no context is selected.
func WithContextRegistry(r ragchat.ContextRegistry) Option {
	return func(m *Model) {
		m.contexts = r
	}
}

// turnBlocks holds the blocks rendered for one turn, reused across
// snapshots so render caches and collapsed state survive.
type turnBlocks struct {
	user    *UserMessageBlock
	answer  *AssistantBlock
	sources *SourcesBlock
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	reducer  Reducer
	feed     *Feed
	contexts ragchat.ContextRegistry
	renderer *goldmark.Renderer
	styles   Styles
	spinner  spinner.Model

	conv       ragchat.Conversation
	byTurn     map[string]*turnBlocks
	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	running bool
	failure string
	notice  string
	ready   bool
}

// New creates a TUI Model that drives reducer and renders what feed
// delivers. feed must be the one wired into the reducer as observer and
// failure reporter.
func New(reducer Reducer, feed *Feed, theme ragchat.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question or type /help"
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := NewStyles(theme)
	sp.Style = styles.Accent

	m := Model{
		Input:      ti,
		reducer:    reducer,
		feed:       feed,
		renderer:   goldmark.New(theme),
		styles:     styles,
		spinner:    sp,
		conv:       reducer.Conversation(),
		byTurn:     make(map[string]*turnBlocks),
		blockFocus: -1,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Running returns whether a stream is in flight.
func (m Model) Running() bool { return m.running }

// Failure returns the last reported failure message, if any.
func (m Model) Failure() string { return m.failure }

// Conversation returns the last snapshot the model rendered.
func (m Model) Conversation() ragchat.Conversation { return m.conv }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.feed.listen()}
	if m.contexts != nil && m.conv.ContextID == "" {
		cmds = append(cmds, listContexts(m.contexts, true))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		m.conv = msg.Conversation
		m = m.syncBlocks()
		m.refresh()
		return m, m.feed.listen()

	case FailureMsg:
		m.failure = msg.Message
		m.refresh()
		return m, m.feed.listen()

	case SubmitDoneMsg:
		m.running = false
		m = m.updateBlockFocus()
		m.refresh()
		return m, m.Input.Focus()

	case ContextsMsg:
		return m.handleContexts(msg), nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusHeight - borderHeight

	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.syncBlocks()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.refresh()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			m.reducer.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		m.Input.SetValue("")
		if strings.HasPrefix(text, "/") {
			return m.runCommand(text)
		}
		return m.submit(text)

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.cycleFocusPrev()
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	}

	// When idle, only non-character keys reach the viewport so 'j'/'k'
	// type text instead of scrolling.
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.failure = ""
	m.notice = ""
	m.running = true
	m.Input.Blur()
	return m, tea.Batch(submitQuery(m.reducer, text), m.spinner.Tick)
}

func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	m.failure = ""
	m.notice = ""

	switch name {
	case "/context":
		if arg == "" {
			m.failure = "usage: /context <id>"
			break
		}
		m.reducer.SetContext(arg)
		m.notice = "Using context " + arg
	case "/contexts":
		if m.contexts == nil {
			m.failure = "context listing is not available"
			break
		}
		return m, listContexts(m.contexts, false)
	case "/model":
		if arg == "" {
			m.failure = "usage: /model <id>"
			break
		}
		m.reducer.SetModel(arg)
		m.notice = "Using model " + arg
	case "/clear":
		m.reducer.Reset()
	case "/help":
		m.notice = helpText
	default:
		m.failure = fmt.Sprintf("unknown command %s (try /help)", name)
	}
	return m, nil
}

func (m Model) handleContexts(msg ContextsMsg) Model {
	switch {
	case msg.Err != nil:
		m.failure = ragchat.ErrorMessage(msg.Err)
	case len(msg.IDs) == 0:
		m.notice = "No contexts available. Ingest a document first."
	case msg.AutoSelect:
		if m.conv.ContextID == "" {
			m.reducer.SetContext(msg.IDs[0])
			m.notice = "Using context " + msg.IDs[0]
		}
	default:
		m.notice = "Contexts: " + strings.Join(msg.IDs, ", ")
	}
	return m
}

// syncBlocks rebuilds the block list from the current snapshot, reusing
// blocks of turns that were already on screen.
func (m Model) syncBlocks() Model {
	before := len(m.blocks)
	blocks := make([]MessageBlock, 0, len(m.conv.Turns)+1)
	seen := make(map[string]bool, len(m.conv.Turns))

	for _, t := range m.conv.Turns {
		seen[t.ID] = true
		tb, ok := m.byTurn[t.ID]
		if !ok {
			tb = &turnBlocks{}
			m.byTurn[t.ID] = tb
		}
		switch t.Role {
		case ragchat.RoleUser:
			if tb.user == nil {
				tb.user = NewUserMessageBlock(t.Content, m.styles)
			}
			blocks = append(blocks, tb.user)
		case ragchat.RoleAssistant:
			if tb.answer == nil {
				tb.answer = NewAssistantBlock(m.renderer, m.styles)
			}
			tb.answer.Sync(t)
			blocks = append(blocks, tb.answer)
			if len(t.Sources) > 0 {
				if tb.sources == nil {
					tb.sources = NewSourcesBlock(t.Sources, t.Method, m.styles)
				}
				blocks = append(blocks, tb.sources)
			}
		}
	}
	for id := range m.byTurn {
		if !seen[id] {
			delete(m.byTurn, id)
		}
	}

	m.blocks = blocks
	if len(blocks) != before || m.blockFocus >= len(blocks) {
		m = m.updateBlockFocus()
	}
	return m
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
}

func (m Model) renderContent() string {
	width := m.Viewport.Width
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n")
			if _, ok := block.(*UserMessageBlock); ok {
				b.WriteString("\n")
			}
		}
		view := block.View(width)
		if i == m.blockFocus {
			view = m.styles.Focused.Render("›") + " " + view
		}
		b.WriteString(view)
	}
	if m.failure != "" {
		if len(m.blocks) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(NewErrorBlock(m.failure, m.styles).View(width))
	}
	return b.String()
}

// updateBlockFocus scans backwards to find the last collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(collapsible); ok {
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		if _, ok := m.blocks[idx].(collapsible); ok {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	selection := "context: " + orNone(m.conv.ContextID) + " · model: " + orNone(m.conv.Model)
	switch {
	case m.running:
		return m.spinner.View() + " " + m.styles.Muted.Render("Streaming... Ctrl+C to cancel · "+selection)
	case m.failure != "":
		return m.styles.Error.Render("Error: "+m.failure) + m.styles.Muted.Render(" · "+selection)
	case m.notice != "":
		return m.styles.Success.Render(m.notice) + m.styles.Muted.Render(" · "+selection)
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+C to quit · " + selection)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// submitQuery runs Submit off the UI goroutine. Progress arrives through the
// Feed; the returned error is only used to leave the running state.
func submitQuery(r Reducer, query string) tea.Cmd {
	return func() tea.Msg {
		err := r.Submit(context.Background(), query)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		return SubmitDoneMsg{Err: err}
	}
}

func listContexts(r ragchat.ContextRegistry, autoSelect bool) tea.Cmd {
	return func() tea.Msg {
		ids, err := r.ListContexts(context.Background())
		return ContextsMsg{IDs: ids, Err: err, AutoSelect: autoSelect}
	}
}
