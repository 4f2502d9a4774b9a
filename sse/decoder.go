// Package sse decodes the chat backend's streaming response body into
// frames. The body is a sequence of newline-delimited lines; lines carrying
// the "data: " prefix hold one JSON frame payload each.
package sse

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/json"
	"go.uber.org/zap"
)

// Prefix marks a line that carries a frame payload.
const Prefix = "data: "

// DefaultChunkSize is the size of each read from the underlying body.
const DefaultChunkSize = 4096

// Interface compliance check.
var _ ragchat.FrameStream = (*Decoder)(nil)

// Decoder implements [ragchat.FrameStream] over an HTTP response body.
//
// Bytes are read in chunks and appended to a buffer. Complete lines are cut
// from the front of the buffer; the trailing fragment waits for the next
// chunk. A Decoder is not restartable: once Next returns an error it keeps
// returning that error.
type Decoder struct {
	body   io.ReadCloser
	chunk  []byte
	buf    []byte // at most one unterminated line between reads
	eof    bool
	err    error // terminal error, if any
	logger *zap.Logger
}

// Option configures a [Decoder].
type Option func(*Decoder)

// WithChunkSize sets the read size. Values below 1 are ignored.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunk = make([]byte, n)
		}
	}
}

// WithLogger sets the logger used for dropped lines.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) { d.logger = l }
}

// NewDecoder returns a Decoder reading from body. The Decoder owns body and
// closes it on Close.
func NewDecoder(body io.ReadCloser, opts ...Option) *Decoder {
	d := &Decoder{
		body:   body,
		chunk:  make([]byte, DefaultChunkSize),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Next returns the next decodable frame. It returns io.EOF once the body is
// exhausted. Malformed payloads and unknown frame types are logged and
// skipped.
func (d *Decoder) Next() (ragchat.Frame, error) {
	if d.err != nil {
		return nil, d.err
	}
	for {
		if line, ok := d.cutLine(); ok {
			if f, ok := d.decode(line); ok {
				return f, nil
			}
			continue
		}
		if d.eof {
			if len(d.buf) > 0 {
				d.logger.Debug("discarding unterminated trailing line", zap.Int("bytes", len(d.buf)))
			}
			d.terminate(io.EOF)
			return nil, d.err
		}
		if err := d.fill(); err != nil {
			d.terminate(err)
			return nil, d.err
		}
	}
}

// Close closes the body and discards any buffered bytes.
func (d *Decoder) Close() error {
	if d.err == nil {
		d.err = ragchat.ErrStreamClosed
	}
	d.buf = nil
	return d.body.Close()
}

// fill reads one chunk into the buffer. End of body sets eof rather than
// returning an error so buffered lines are drained first.
func (d *Decoder) fill() error {
	n, err := d.body.Read(d.chunk)
	d.buf = append(d.buf, d.chunk[:n]...)
	if errors.Is(err, io.EOF) {
		d.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

// cutLine removes the first complete line from the buffer, without its
// terminator. A trailing carriage return is trimmed.
func (d *Decoder) cutLine() ([]byte, bool) {
	i := bytes.IndexByte(d.buf, '\n')
	if i < 0 {
		return nil, false
	}
	line := d.buf[:i]
	d.buf = d.buf[i+1:]
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return bytes.TrimSuffix(line, []byte{'\r'}), true
}

func (d *Decoder) decode(line []byte) (ragchat.Frame, bool) {
	payload, ok := bytes.CutPrefix(line, []byte(Prefix))
	if !ok {
		return nil, false
	}
	f, err := json.UnmarshalFrame(payload)
	if err != nil {
		d.logger.Warn("dropping undecodable frame",
			zap.Error(err),
			zap.ByteString("payload", payload),
		)
		return nil, false
	}
	return f, true
}

func (d *Decoder) terminate(err error) {
	d.err = err
	d.buf = nil
}
