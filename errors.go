package ragchat

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a submission or request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates a submission was made while another stream
	// was still in flight on the same reducer.
	ErrConflict = errors.New("a response is already streaming")

	// ErrStreamClosed indicates an operation on a closed frame stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrUnexpectedEOF indicates the stream ended without an end or error frame.
	ErrUnexpectedEOF = errors.New("stream ended before completion")
)

// StreamError is an application-level failure delivered by the server as an
// error frame.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}

// TransportError describes a failed HTTP exchange with the backend: the
// request never completed, the server answered with a non-success status,
// or the response body could not be read.
type TransportError struct {
	Op         string // e.g. "chat-stream", "contexts"
	StatusCode int    // 0 when no response was received
	Message    string // server-supplied detail, if any
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + e.Message
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorMessage returns the short human-readable text used when reporting err
// to a user. Server-supplied details are preferred over wrapped error chains.
func ErrorMessage(err error) string {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Message
	}
	var te *TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	if errors.Is(err, ErrValidation) {
		return strings.TrimSuffix(err.Error(), ": "+ErrValidation.Error())
	}
	return err.Error()
}
