// Package chat folds a streamed chat response into conversation state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fwojciec/ragchat"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reducer drives one streamed response at a time and folds its frames into a
// Conversation. Every state change is published to the observer as a
// snapshot.
//
// Methods are safe for concurrent use: a UI goroutine may call Cancel,
// SetContext or Conversation while Submit is folding frames. Observers are
// called sequentially and must not call mutating Reducer methods
// synchronously.
type Reducer struct {
	transport ragchat.Transport
	observer  ragchat.Observer
	reporter  ragchat.FailureReporter
	logger    *zap.Logger
	topK      int
	now       func() time.Time

	mu     sync.Mutex
	conv   ragchat.Conversation
	cancel context.CancelFunc // non-nil while a stream is in flight
	gen    uint64             // bumped when turns are cleared under a live stream

	notifyMu sync.Mutex
}

// Option configures a [Reducer].
type Option func(*Reducer)

// WithObserver sets the function called with a snapshot after every state
// change.
func WithObserver(o ragchat.Observer) Option {
	return func(r *Reducer) { r.observer = o }
}

// WithFailureReporter sets the destination of user-visible failures.
func WithFailureReporter(fr ragchat.FailureReporter) Option {
	return func(r *Reducer) { r.reporter = fr }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reducer) { r.logger = l }
}

// WithDefaultModel sets the initially selected model.
func WithDefaultModel(model string) Option {
	return func(r *Reducer) { r.conv.Model = model }
}

// WithTopK sets the number of retrieved passages requested per query.
func WithTopK(k int) Option {
	return func(r *Reducer) { r.topK = k }
}

// New creates a Reducer that opens streams through transport.
func New(transport ragchat.Transport, opts ...Option) *Reducer {
	r := &Reducer{
		transport: transport,
		observer:  func(ragchat.Conversation) {},
		reporter:  ragchat.FailureReporterFunc(func(string) {}),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Conversation returns a snapshot of the current state.
func (r *Reducer) Conversation() ragchat.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conv.Clone()
}

// Streaming reports whether a response is in flight.
func (r *Reducer) Streaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// SetContext switches the active context. Switching to a different context
// aborts any in-flight stream and clears the turns before returning.
func (r *Reducer) SetContext(id string) {
	r.mu.Lock()
	if id == r.conv.ContextID {
		r.mu.Unlock()
		return
	}
	r.abandonLocked()
	r.conv.SetContext(id)
	r.publishLocked()
}

// SetModel selects the model used by subsequent submissions.
func (r *Reducer) SetModel(model string) {
	r.mu.Lock()
	if model == r.conv.Model {
		r.mu.Unlock()
		return
	}
	r.conv.Model = model
	r.publishLocked()
}

// Reset aborts any in-flight stream and clears the turns, keeping the
// context and model selection.
func (r *Reducer) Reset() {
	r.mu.Lock()
	r.abandonLocked()
	r.conv.Turns = nil
	r.publishLocked()
}

// Cancel aborts the in-flight stream, if any. The open assistant turn keeps
// the content received so far and is marked cancelled.
func (r *Reducer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Submit sends query against the active context and model, carrying the
// completed turns as history, and folds the streamed answer into the
// conversation. It blocks until the stream ends.
//
// Submit returns an error wrapping ragchat.ErrValidation or
// ragchat.ErrConflict without opening a stream, a *ragchat.StreamError when
// the server reports a failure, and context.Canceled (or the ctx error)
// when the stream is cancelled. Every error except cancellation is also
// sent to the failure reporter.
func (r *Reducer) Submit(ctx context.Context, query string) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		r.report(ragchat.ErrConflict)
		return ragchat.ErrConflict
	}
	req := ragchat.StreamRequest{
		Query:     query,
		ContextID: r.conv.ContextID,
		Model:     r.conv.Model,
		History:   r.conv.History(),
		TopK:      r.topK,
	}
	if err := req.Validate(); err != nil {
		r.mu.Unlock()
		r.report(err)
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.cancel = cancel
	gen := r.gen
	now := r.now()
	r.conv.Turns = append(r.conv.Turns,
		ragchat.Turn{ID: uuid.NewString(), Role: ragchat.RoleUser, Content: query, Status: ragchat.TurnComplete, CreatedAt: now},
		ragchat.Turn{ID: uuid.NewString(), Role: ragchat.RoleAssistant, Status: ragchat.TurnPending, CreatedAt: now},
	)
	r.publishLocked()

	r.logger.Debug("opening stream",
		zap.String("context", req.ContextID),
		zap.String("model", req.Model),
		zap.Int("history", len(req.History)),
	)
	stream, err := r.transport.Open(streamCtx, req)
	if err != nil {
		if streamCtx.Err() != nil {
			return r.cancelled(streamCtx, gen)
		}
		return r.fail(streamCtx, gen, fmt.Errorf("open stream: %w", err))
	}
	defer stream.Close()

	for {
		f, err := stream.Next()
		if streamCtx.Err() != nil {
			return r.cancelled(streamCtx, gen)
		}
		if errors.Is(err, io.EOF) {
			return r.fail(streamCtx, gen, ragchat.ErrUnexpectedEOF)
		}
		if err != nil {
			return r.fail(streamCtx, gen, err)
		}
		done, err := r.apply(streamCtx, gen, f)
		if errors.Is(err, errStopped) {
			return r.cancelled(streamCtx, gen)
		}
		if err != nil {
			return r.fail(streamCtx, gen, err)
		}
		if done {
			return nil
		}
	}
}

// errStopped is returned by apply when the stream was cancelled before the
// frame could be folded.
var errStopped = errors.New("stream stopped")

// apply folds one frame into the open assistant turn. It reports whether
// the stream reached a terminal frame. Cancel holds r.mu while cancelling
// ctx, so no frame is folded once Cancel has returned.
func (r *Reducer) apply(ctx context.Context, gen uint64, f ragchat.Frame) (bool, error) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return true, context.Canceled
	}
	if ctx.Err() != nil {
		r.mu.Unlock()
		return true, errStopped
	}
	i, ok := r.conv.OpenTurn()
	if !ok {
		r.cancel = nil
		r.mu.Unlock()
		r.logger.Warn("stream has no open turn", zap.String("frame", fmt.Sprintf("%T", f)))
		return true, nil
	}
	turn := &r.conv.Turns[i]

	switch f := f.(type) {
	case ragchat.FrameSources:
		if turn.Sources != nil {
			id := turn.ID
			r.mu.Unlock()
			r.logger.Warn("ignoring repeated sources frame", zap.String("turn", id))
			return false, nil
		}
		turn.Sources = append(make([]ragchat.Source, 0, len(f.Sources)), f.Sources...)
		turn.Method = f.Method
	case ragchat.FrameContent:
		turn.Content += f.Delta
		if turn.Status == ragchat.TurnPending {
			turn.Status = ragchat.TurnStreaming
		}
	case ragchat.FrameError:
		r.mu.Unlock()
		return true, &ragchat.StreamError{Message: f.Message}
	case ragchat.FrameEnd:
		turn.Status = ragchat.TurnComplete
		r.cancel = nil
		r.publishLocked()
		return true, nil
	}
	r.publishLocked()
	return false, nil
}

// fail removes the open assistant turn, reports err and returns it. A
// stream cancelled before the lock is taken is frozen instead.
func (r *Reducer) fail(ctx context.Context, gen uint64, err error) error {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return context.Canceled
	}
	if ctx.Err() != nil {
		r.mu.Unlock()
		return r.cancelled(ctx, gen)
	}
	r.cancel = nil
	if i, ok := r.conv.OpenTurn(); ok {
		r.conv.Turns[i].Status = ragchat.TurnFailed
		r.conv.RemoveTurn(r.conv.Turns[i].ID)
	}
	r.publishLocked()
	r.logger.Warn("stream failed", zap.Error(err))
	r.report(err)
	return err
}

// cancelled freezes the open assistant turn. Turns cleared by SetContext or
// Reset are left alone.
func (r *Reducer) cancelled(ctx context.Context, gen uint64) error {
	err := ctx.Err()
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return err
	}
	r.cancel = nil
	if i, ok := r.conv.OpenTurn(); ok {
		r.conv.Turns[i].Status = ragchat.TurnCancelled
	}
	r.publishLocked()
	r.logger.Debug("stream cancelled", zap.Error(err))
	return err
}

// abandonLocked detaches the in-flight stream so its fold loop stops
// mutating state. r.mu must be held.
func (r *Reducer) abandonLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil
	r.gen++
}

// publishLocked snapshots the conversation, releases r.mu and calls the
// observer. Snapshots reach the observer in mutation order.
func (r *Reducer) publishLocked() {
	snap := r.conv.Clone()
	r.notifyMu.Lock()
	r.mu.Unlock()
	defer r.notifyMu.Unlock()
	r.observer(snap)
}

func (r *Reducer) report(err error) {
	r.reporter.ReportFailure(ragchat.ErrorMessage(err))
}
