// Package mock provides test doubles for ragchat interfaces using function
// fields. Calling a method whose function field is unset panics unless its
// doc says otherwise.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/fwojciec/ragchat"
)

// Interface compliance checks.
var (
	_ ragchat.Transport       = (*Transport)(nil)
	_ ragchat.FrameStream     = (*FrameStream)(nil)
	_ ragchat.FailureReporter = (*FailureReporter)(nil)
)

// Transport is a test double for ragchat.Transport.
type Transport struct {
	OpenFn func(ctx context.Context, req ragchat.StreamRequest) (ragchat.FrameStream, error)
}

// Open delegates to OpenFn.
func (t *Transport) Open(ctx context.Context, req ragchat.StreamRequest) (ragchat.FrameStream, error) {
	return t.OpenFn(ctx, req)
}

// FrameStream is a test double for ragchat.FrameStream. CloseFn is nil-safe
// because callers commonly defer Close.
type FrameStream struct {
	NextFn  func() (ragchat.Frame, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *FrameStream) Next() (ragchat.Frame, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *FrameStream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Frames returns a FrameStream that yields frames in order and then io.EOF.
func Frames(frames ...ragchat.Frame) *FrameStream {
	var mu sync.Mutex
	i := 0
	return &FrameStream{
		NextFn: func() (ragchat.Frame, error) {
			mu.Lock()
			defer mu.Unlock()
			if i >= len(frames) {
				return nil, io.EOF
			}
			f := frames[i]
			i++
			return f, nil
		},
	}
}

// FailureReporter records every reported message. The zero value is ready
// to use.
type FailureReporter struct {
	mu       sync.Mutex
	messages []string
}

// ReportFailure records msg.
func (r *FailureReporter) ReportFailure(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns the reported messages in order.
func (r *FailureReporter) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
