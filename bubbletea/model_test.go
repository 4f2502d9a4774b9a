package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/fwojciec/ragchat"
	bt "github.com/fwojciec/ragchat/bubbletea"
	"github.com/fwojciec/ragchat/chat"
	"github.com/fwojciec/ragchat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReducer records calls and never streams.
type fakeReducer struct {
	mu        sync.Mutex
	conv      ragchat.Conversation
	submitted []string
	cancelled int
}

func (r *fakeReducer) Submit(_ context.Context, query string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, query)
	return nil
}

func (r *fakeReducer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled++
}

func (r *fakeReducer) SetContext(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conv.SetContext(id)
}

func (r *fakeReducer) SetModel(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conv.Model = model
}

func (r *fakeReducer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conv.Turns = nil
}

func (r *fakeReducer) Conversation() ragchat.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conv.Clone()
}

func initModel(t *testing.T, r bt.Reducer, opts ...bt.Option) bt.Model {
	t.Helper()
	m := bt.New(r, bt.NewFeed(), ragchat.DefaultTheme(), opts...)
	return updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	result, _ := m.Update(msg)
	updated, ok := result.(bt.Model)
	require.True(t, ok)
	return updated
}

func typeText(t *testing.T, m bt.Model, text string) bt.Model {
	t.Helper()
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func snapshot(turns ...ragchat.Turn) bt.SnapshotMsg {
	return bt.SnapshotMsg{Conversation: ragchat.Conversation{ContextID: "https://example.com", Turns: turns}}
}

func TestModel_Update(t *testing.T) {
	t.Parallel()

	t.Run("view before window size shows initializing", func(t *testing.T) {
		t.Parallel()
		m := bt.New(&fakeReducer{}, bt.NewFeed(), ragchat.DefaultTheme())
		assert.Equal(t, "Initializing...", m.View())
	})

	t.Run("enter submits trimmed input and starts running", func(t *testing.T) {
		t.Parallel()
		r := &fakeReducer{}
		m := initModel(t, r)
		m = typeText(t, m, "  what is X?  ")
		result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = result.(bt.Model)
		require.NotNil(t, cmd)
		assert.True(t, m.Running())
		assert.Empty(t, m.Input.Value())
		assert.Contains(t, m.View(), "Streaming...")
	})

	t.Run("empty input is not submitted", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		m = typeText(t, m, "   ")
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Nil(t, cmd)
	})

	t.Run("ctrl+c cancels while running", func(t *testing.T) {
		t.Parallel()
		r := &fakeReducer{}
		m := initModel(t, r)
		m = typeText(t, m, "q")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.Nil(t, cmd)
		assert.True(t, result.(bt.Model).Running())
		assert.Equal(t, 1, r.cancelled)
	})

	t.Run("ctrl+c quits while idle", func(t *testing.T) {
		t.Parallel()
		r := &fakeReducer{}
		m := initModel(t, r)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
		assert.Zero(t, r.cancelled)
	})

	t.Run("submit done leaves running state", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		m = typeText(t, m, "q")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		m = updateModel(t, m, bt.SubmitDoneMsg{})
		assert.False(t, m.Running())
		assert.Contains(t, m.View(), "Enter to send")
	})

	t.Run("snapshot renders turns in order", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		m = updateModel(t, m, snapshot(
			ragchat.Turn{ID: "1", Role: ragchat.RoleUser, Content: "What is X?", Status: ragchat.TurnComplete},
			ragchat.Turn{ID: "2", Role: ragchat.RoleAssistant, Content: "It is **X**.", Status: ragchat.TurnComplete},
		))
		content := bt.RenderContent(m)
		q := strings.Index(content, "What is X?")
		a := strings.Index(content, "It is X.")
		require.GreaterOrEqual(t, q, 0)
		require.GreaterOrEqual(t, a, 0)
		assert.Less(t, q, a)
		assert.Equal(t, "https://example.com", m.Conversation().ContextID)
		assert.Contains(t, m.View(), "context: https://example.com")
	})

	t.Run("streaming snapshots grow the same answer", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		user := ragchat.Turn{ID: "1", Role: ragchat.RoleUser, Content: "q", Status: ragchat.TurnComplete}
		m = updateModel(t, m, snapshot(user, ragchat.Turn{ID: "2", Role: ragchat.RoleAssistant, Status: ragchat.TurnPending}))
		assert.Contains(t, bt.RenderContent(m), "Thinking...")
		m = updateModel(t, m, snapshot(user, ragchat.Turn{ID: "2", Role: ragchat.RoleAssistant, Content: "par", Status: ragchat.TurnStreaming}))
		m = updateModel(t, m, snapshot(user, ragchat.Turn{ID: "2", Role: ragchat.RoleAssistant, Content: "partial", Status: ragchat.TurnStreaming}))
		content := bt.RenderContent(m)
		assert.Equal(t, 1, strings.Count(content, "partial"))
		assert.NotContains(t, content, "Thinking...")
	})

	t.Run("removed turns disappear", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		user := ragchat.Turn{ID: "1", Role: ragchat.RoleUser, Content: "q", Status: ragchat.TurnComplete}
		m = updateModel(t, m, snapshot(user, ragchat.Turn{ID: "2", Role: ragchat.RoleAssistant, Content: "half", Status: ragchat.TurnStreaming}))
		m = updateModel(t, m, snapshot(user))
		m = updateModel(t, m, bt.FailureMsg{Message: "model overloaded"})
		content := bt.RenderContent(m)
		assert.NotContains(t, content, "half")
		assert.Contains(t, content, "Error: model overloaded")
		assert.Equal(t, "model overloaded", m.Failure())
	})

	t.Run("sources block gets focus and toggles with tab", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		m = updateModel(t, m, snapshot(
			ragchat.Turn{ID: "1", Role: ragchat.RoleUser, Content: "q", Status: ragchat.TurnComplete},
			ragchat.Turn{
				ID: "2", Role: ragchat.RoleAssistant, Content: "answer", Status: ragchat.TurnComplete,
				Sources: []ragchat.Source{{Locator: "https://example.com/doc", Excerpt: "excerpt"}}, Method: "rag",
			},
		))
		assert.Equal(t, 2, bt.BlockFocus(m))
		assert.Contains(t, bt.RenderContent(m), "Sources (1) · rag")
		assert.NotContains(t, bt.RenderContent(m), "https://example.com/doc")

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
		assert.Contains(t, bt.RenderContent(m), "https://example.com/doc")

		// Expanded state survives later snapshots.
		m = updateModel(t, m, snapshot(
			ragchat.Turn{ID: "1", Role: ragchat.RoleUser, Content: "q", Status: ragchat.TurnComplete},
			ragchat.Turn{
				ID: "2", Role: ragchat.RoleAssistant, Content: "answer", Status: ragchat.TurnComplete,
				Sources: []ragchat.Source{{Locator: "https://example.com/doc", Excerpt: "excerpt"}}, Method: "rag",
			},
		))
		assert.Contains(t, bt.RenderContent(m), "https://example.com/doc")
	})

	t.Run("shift+tab cycles between sources blocks", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		src := []ragchat.Source{{Locator: "https://example.com"}}
		m = updateModel(t, m, snapshot(
			ragchat.Turn{ID: "1", Role: ragchat.RoleUser, Content: "q1", Status: ragchat.TurnComplete},
			ragchat.Turn{ID: "2", Role: ragchat.RoleAssistant, Content: "a1", Status: ragchat.TurnComplete, Sources: src},
			ragchat.Turn{ID: "3", Role: ragchat.RoleUser, Content: "q2", Status: ragchat.TurnComplete},
			ragchat.Turn{ID: "4", Role: ragchat.RoleAssistant, Content: "a2", Status: ragchat.TurnComplete, Sources: src},
		))
		assert.Equal(t, 5, bt.BlockFocus(m))
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
		assert.Equal(t, 2, bt.BlockFocus(m))
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
		assert.Equal(t, 5, bt.BlockFocus(m))
	})

	t.Run("tab is ignored while running", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		m = updateModel(t, m, snapshot(
			ragchat.Turn{ID: "2", Role: ragchat.RoleAssistant, Content: "a", Status: ragchat.TurnStreaming,
				Sources: []ragchat.Source{{Locator: "https://example.com/doc"}}},
		))
		m = typeText(t, m, "q")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
		assert.NotContains(t, bt.RenderContent(m), "https://example.com/doc")
	})

	t.Run("page up scrolls viewport while idle", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		var turns []ragchat.Turn
		for i := range 30 {
			turns = append(turns, ragchat.Turn{
				ID: fmt.Sprint(i), Role: ragchat.RoleUser,
				Content: fmt.Sprintf("line-%d", i), Status: ragchat.TurnComplete,
			})
		}
		m = updateModel(t, m, snapshot(turns...))
		assert.Contains(t, m.Viewport.View(), "line-29")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
		assert.NotContains(t, m.Viewport.View(), "line-29")
	})
}

func TestModel_Commands(t *testing.T) {
	t.Parallel()

	run := func(t *testing.T, m bt.Model, line string) (bt.Model, tea.Cmd) {
		t.Helper()
		m = typeText(t, m, line)
		result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		return result.(bt.Model), cmd
	}

	t.Run("context selects and clears", func(t *testing.T) {
		t.Parallel()
		r := &fakeReducer{}
		r.conv.Turns = []ragchat.Turn{{ID: "1"}}
		m, cmd := run(t, initModel(t, r), "/context https://example.com/b")
		assert.Nil(t, cmd)
		assert.Equal(t, "https://example.com/b", r.Conversation().ContextID)
		assert.Empty(t, r.Conversation().Turns)
		assert.Contains(t, m.View(), "Using context https://example.com/b")
		assert.Empty(t, r.submitted)
	})

	t.Run("context without argument fails", func(t *testing.T) {
		t.Parallel()
		m, _ := run(t, initModel(t, &fakeReducer{}), "/context")
		assert.Equal(t, "usage: /context <id>", m.Failure())
	})

	t.Run("model sets model", func(t *testing.T) {
		t.Parallel()
		r := &fakeReducer{}
		run(t, initModel(t, r), "/model gpt-4o")
		assert.Equal(t, "gpt-4o", r.Conversation().Model)
	})

	t.Run("clear resets turns", func(t *testing.T) {
		t.Parallel()
		r := &fakeReducer{}
		r.conv.Turns = []ragchat.Turn{{ID: "1"}}
		run(t, initModel(t, r), "/clear")
		assert.Empty(t, r.Conversation().Turns)
	})

	t.Run("help lists commands", func(t *testing.T) {
		t.Parallel()
		m, _ := run(t, initModel(t, &fakeReducer{}), "/help")
		assert.Contains(t, m.View(), "/contexts")
	})

	t.Run("unknown command fails", func(t *testing.T) {
		t.Parallel()
		m, _ := run(t, initModel(t, &fakeReducer{}), "/nope")
		assert.Contains(t, m.Failure(), "unknown command /nope")
	})

	t.Run("contexts lists registry entries", func(t *testing.T) {
		t.Parallel()
		reg := &mock.ContextRegistry{ListContextsFn: func(context.Context) ([]string, error) {
			return []string{"a", "b"}, nil
		}}
		m, cmd := run(t, initModel(t, &fakeReducer{}, bt.WithContextRegistry(reg)), "/contexts")
		require.NotNil(t, cmd)
		msg := cmd()
		assert.Equal(t, bt.ContextsMsg{IDs: []string{"a", "b"}}, msg)
		m = updateModel(t, m, msg)
		assert.Contains(t, m.View(), "Contexts: a, b")
	})

	t.Run("contexts without registry fails", func(t *testing.T) {
		t.Parallel()
		m, cmd := run(t, initModel(t, &fakeReducer{}), "/contexts")
		assert.Nil(t, cmd)
		assert.Equal(t, "context listing is not available", m.Failure())
	})
}

func TestModel_Contexts(t *testing.T) {
	t.Parallel()

	t.Run("auto select picks first context", func(t *testing.T) {
		t.Parallel()
		r := &fakeReducer{}
		m := initModel(t, r)
		m = updateModel(t, m, bt.ContextsMsg{IDs: []string{"a", "b"}, AutoSelect: true})
		assert.Equal(t, "a", r.Conversation().ContextID)
	})

	t.Run("auto select keeps existing context", func(t *testing.T) {
		t.Parallel()
		r := &fakeReducer{conv: ragchat.Conversation{ContextID: "b"}}
		m := initModel(t, r)
		updateModel(t, m, bt.ContextsMsg{IDs: []string{"a", "b"}, AutoSelect: true})
		assert.Equal(t, "b", r.Conversation().ContextID)
	})

	t.Run("empty list suggests ingest", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		m = updateModel(t, m, bt.ContextsMsg{AutoSelect: true})
		assert.Contains(t, m.View(), "No contexts available")
	})

	t.Run("list error is shown", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, &fakeReducer{})
		m = updateModel(t, m, bt.ContextsMsg{Err: errors.New("connection refused")})
		assert.Equal(t, "connection refused", m.Failure())
	})
}

func TestFeed(t *testing.T) {
	t.Parallel()

	// listener returns the feed listener batched into Init.
	listener := func(t *testing.T, f *bt.Feed) tea.Cmd {
		t.Helper()
		m := bt.New(&fakeReducer{}, f, ragchat.DefaultTheme())
		batch, ok := m.Init()().(tea.BatchMsg)
		require.True(t, ok)
		require.Len(t, batch, 2)
		return batch[1]
	}

	t.Run("keeps only the latest snapshot", func(t *testing.T) {
		t.Parallel()
		f := bt.NewFeed()
		f.Observe(ragchat.Conversation{ContextID: "a"})
		f.Observe(ragchat.Conversation{ContextID: "b"})
		msg := listener(t, f)()
		assert.Equal(t, bt.SnapshotMsg{Conversation: ragchat.Conversation{ContextID: "b"}}, msg)
	})

	t.Run("full buffer keeps the latest failure", func(t *testing.T) {
		t.Parallel()
		f := bt.NewFeed()
		for i := range 100 {
			f.ReportFailure(fmt.Sprintf("failure %d", i))
		}
		listen := listener(t, f)
		var got []string
		for range bt.FailureBuffer {
			msg, ok := listen().(bt.FailureMsg)
			require.True(t, ok)
			got = append(got, msg.Message)
		}
		assert.Equal(t, "failure 99", got[len(got)-1])
		assert.Equal(t, fmt.Sprintf("failure %d", 100-bt.FailureBuffer), got[0])
	})
}

func TestModel_Teatest(t *testing.T) {
	t.Parallel()

	t.Run("full submit cycle through the reducer", func(t *testing.T) {
		t.Parallel()

		tr := &mock.Transport{
			OpenFn: func(_ context.Context, req ragchat.StreamRequest) (ragchat.FrameStream, error) {
				return mock.Frames(
					ragchat.FrameSources{Sources: []ragchat.Source{{Locator: "https://example.com/doc"}}, Method: "rag"},
					ragchat.FrameContent{Delta: "Hello "},
					ragchat.FrameContent{Delta: "there!"},
					ragchat.FrameEnd{},
				), nil
			},
		}
		feed := bt.NewFeed()
		r := chat.New(tr, chat.WithObserver(feed.Observe), chat.WithFailureReporter(feed))
		r.SetContext("https://example.com/doc")
		m := bt.New(r, feed, ragchat.DefaultTheme())

		tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

		tm.Type("hi")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("Hello there!")) &&
				bytes.Contains(out, []byte("Sources (1)")) &&
				bytes.Contains(out, []byte("Enter to send"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)
		assert.False(t, final.Running())
		assert.Empty(t, final.Failure())
		require.Len(t, r.Conversation().Turns, 2)
		assert.Equal(t, ragchat.TurnComplete, r.Conversation().Turns[1].Status)
	})

	t.Run("error frame is reported and answer removed", func(t *testing.T) {
		t.Parallel()

		tr := &mock.Transport{
			OpenFn: func(context.Context, ragchat.StreamRequest) (ragchat.FrameStream, error) {
				return mock.Frames(
					ragchat.FrameContent{Delta: "half"},
					ragchat.FrameError{Message: "model overloaded"},
				), nil
			},
		}
		feed := bt.NewFeed()
		r := chat.New(tr, chat.WithObserver(feed.Observe), chat.WithFailureReporter(feed))
		r.SetContext("https://example.com/doc")
		m := bt.New(r, feed, ragchat.DefaultTheme())

		tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
		tm.Type("hi")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("model overloaded"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))
		assert.Len(t, r.Conversation().Turns, 1)
	})

	t.Run("ctrl+c cancels a stalled stream", func(t *testing.T) {
		t.Parallel()

		tr := &mock.Transport{
			OpenFn: func(ctx context.Context, _ ragchat.StreamRequest) (ragchat.FrameStream, error) {
				sent := false
				return &mock.FrameStream{NextFn: func() (ragchat.Frame, error) {
					if !sent {
						sent = true
						return ragchat.FrameContent{Delta: "partial answer"}, nil
					}
					<-ctx.Done()
					return nil, ctx.Err()
				}}, nil
			},
		}
		feed := bt.NewFeed()
		r := chat.New(tr, chat.WithObserver(feed.Observe), chat.WithFailureReporter(feed))
		r.SetContext("https://example.com/doc")
		m := bt.New(r, feed, ragchat.DefaultTheme())

		tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
		tm.Type("hi")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("partial answer"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("[cancelled]")) &&
				bytes.Contains(out, []byte("Enter to send"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))

		turns := r.Conversation().Turns
		require.Len(t, turns, 2)
		assert.Equal(t, ragchat.TurnCancelled, turns[1].Status)
		assert.Equal(t, "partial answer", turns[1].Content)
	})

	t.Run("first context is selected at startup", func(t *testing.T) {
		t.Parallel()

		feed := bt.NewFeed()
		r := chat.New(&mock.Transport{}, chat.WithObserver(feed.Observe), chat.WithFailureReporter(feed))
		reg := &mock.ContextRegistry{ListContextsFn: func(context.Context) ([]string, error) {
			return []string{"https://example.com/first", "https://example.com/second"}, nil
		}}
		m := bt.New(r, feed, ragchat.DefaultTheme(), bt.WithContextRegistry(reg))

		tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 24))
		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("context: https://example.com/first"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))
		assert.Equal(t, "https://example.com/first", r.Conversation().ContextID)
	})
}
