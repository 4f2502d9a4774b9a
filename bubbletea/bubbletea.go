// Package bubbletea provides a Bubble Tea terminal UI for a RAG chat
// conversation. The UI renders reducer snapshots and forwards user input
// and cancellation back to the reducer.
package bubbletea

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ragchat"
)

// Reducer is the conversation state owner the UI drives. *chat.Reducer
// implements it.
type Reducer interface {
	Submit(ctx context.Context, query string) error
	Cancel()
	SetContext(id string)
	SetModel(model string)
	Reset()
	Conversation() ragchat.Conversation
}

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. Cancelling ctx quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// Feed carries reducer output into the UI. Pass Observe to
// chat.WithObserver and the Feed itself to chat.WithFailureReporter.
//
// Snapshots are coalesced: only the most recent unread snapshot is kept, so
// a slow UI never blocks the reducer. Failures are buffered and never block
// either.
type Feed struct {
	mu        sync.Mutex
	snapshots chan ragchat.Conversation
	failures  chan string
}

// Interface compliance check.
var _ ragchat.FailureReporter = (*Feed)(nil)

// FailureBuffer is how many unread failures a Feed holds.
const FailureBuffer = 16

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{
		snapshots: make(chan ragchat.Conversation, 1),
		failures:  make(chan string, FailureBuffer),
	}
}

// Observe replaces any unread snapshot with c.
func (f *Feed) Observe(c ragchat.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.snapshots:
	default:
	}
	f.snapshots <- c
}

// ReportFailure queues msg for display. When the buffer is full the oldest
// unread failure is discarded, so the latest one is always delivered.
func (f *Feed) ReportFailure(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		select {
		case f.failures <- msg:
			return
		default:
		}
		select {
		case <-f.failures:
		default:
		}
	}
}

// SnapshotMsg delivers a conversation snapshot to the model.
type SnapshotMsg struct {
	Conversation ragchat.Conversation
}

// FailureMsg delivers a reported failure to the model.
type FailureMsg struct {
	Message string
}

// SubmitDoneMsg signals that a Submit call has returned.
type SubmitDoneMsg struct {
	Err error
}

// ContextsMsg delivers the list of available contexts. With AutoSelect the
// first context becomes active when none is selected yet.
type ContextsMsg struct {
	IDs        []string
	Err        error
	AutoSelect bool
}

// listen waits for the next snapshot or failure.
func (f *Feed) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case c := <-f.snapshots:
			return SnapshotMsg{Conversation: c}
		case msg := <-f.failures:
			return FailureMsg{Message: msg}
		}
	}
}
