// Package wire implements the length-prefixed frame codec over a byte
// stream and the Envelope it carries (see castpb for the protobuf schema).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"castclient/cast/internal/wire/castpb"
)

// MaxFrameSize is the largest payload a single frame may carry, per the
// Cast v2 wire format.
const MaxFrameSize = 64 * 1024

var (
	// ErrOversizeFrame is returned when an encoded envelope, or a decoded
	// length prefix, exceeds MaxFrameSize.
	ErrOversizeFrame = errors.New("wire: frame exceeds 64KiB limit")
	// ErrUnderflowEOF is returned when the stream closes mid-frame.
	ErrUnderflowEOF = errors.New("wire: stream closed mid-frame")
)

// Envelope is the decoded wire unit exposed to callers above the codec.
type Envelope = castpb.Envelope

// PayloadType re-exports the castpb enum so callers never import castpb
// directly.
type PayloadType = castpb.PayloadType

const (
	PayloadTypeString = castpb.PayloadTypeString
	PayloadTypeBinary = castpb.PayloadTypeBinary
)

// Codec frames and unframes Envelopes over an io.ReadWriter (typically a
// *tls.Conn). It holds no socket-ownership semantics itself — the caller
// (the transport event loop) is the single reader and single writer.
type Codec struct {
	r io.Reader
	w io.Writer
}

// NewCodec wraps rw for framed envelope I/O.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{r: rw, w: rw}
}

// Encode serializes env and writes length||bytes atomically (a single Write
// call covering the 4-byte length prefix and the payload).
func (c *Codec) Encode(env *Envelope) error {
	body, err := castpb.Marshal(env)
	if err != nil {
		return fmt.Errorf("wire: encode: %w", err)
	}
	if len(body) > MaxFrameSize {
		return ErrOversizeFrame
	}

	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(body)))
	copy(buf[4:], body)

	if _, err := c.w.Write(buf); err != nil {
		return fmt.Errorf("wire: write: %w", err)
	}
	return nil
}

// Decode reads exactly one frame and returns its decoded Envelope.
func (c *Codec) Decode() (*Envelope, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUnderflowEOF
		}
		return nil, fmt.Errorf("wire: read length: %w", err)
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, ErrOversizeFrame
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(c.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUnderflowEOF
		}
		return nil, fmt.Errorf("wire: read body: %w", err)
	}

	env, err := castpb.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("wire: decode: %w", err)
	}
	return env, nil
}
