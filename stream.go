package ragchat

import "context"

// FrameStream uses a pull-based iterator pattern. Next returns io.EOF once the
// underlying byte stream is exhausted. A FrameStream is finite and cannot be
// restarted; open a new one per response.
//
// Close aborts the underlying transport and discards any buffered partial
// frame. Subsequent Next calls return ErrStreamClosed.
type FrameStream interface {
	Next() (Frame, error)
	Close() error
}

// Transport opens a streaming chat response. Open returns an error when the
// stream never opens (connection refused, non-success status). Cancelling ctx
// aborts an open stream.
type Transport interface {
	Open(ctx context.Context, req StreamRequest) (FrameStream, error)
}

// FailureReporter receives every user-visible failure as a short
// human-readable message.
type FailureReporter interface {
	ReportFailure(msg string)
}

// FailureReporterFunc adapts a function to FailureReporter.
type FailureReporterFunc func(msg string)

// ReportFailure calls f(msg).
func (f FailureReporterFunc) ReportFailure(msg string) { f(msg) }

// Observer is called with a snapshot of the conversation after every state
// change. Snapshots are copies; observers may retain them.
type Observer func(Conversation)
