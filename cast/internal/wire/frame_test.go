package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"castclient/cast/internal/wire/castpb"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	codec := NewCodec(buf)

	env := &Envelope{
		SourceID:      "sender-0",
		DestinationID: "receiver-0",
		Namespace:     "urn:x-cast:com.google.cast.tp.heartbeat",
		PayloadType:   PayloadTypeString,
		PayloadUTF8:   `{"type":"PING"}`,
	}
	if err := codec.Encode(env); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := codec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.PayloadUTF8 != env.PayloadUTF8 || got.Namespace != env.Namespace {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestEncodeLengthPrefixMatchesBody(t *testing.T) {
	buf := &bytes.Buffer{}
	codec := NewCodec(buf)
	env := &Envelope{
		SourceID: "sender-0", DestinationID: "receiver-0",
		Namespace: "urn:x-cast:com.google.cast.tp.connection",
		PayloadType: PayloadTypeString, PayloadUTF8: `{"type":"CONNECT"}`,
	}
	if err := codec.Encode(env); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wireBytes := buf.Bytes()
	n := binary.BigEndian.Uint32(wireBytes[:4])
	if int(n) != len(wireBytes)-4 {
		t.Fatalf("length prefix %d does not match body length %d", n, len(wireBytes)-4)
	}
	if n > MaxFrameSize {
		t.Fatalf("length %d exceeds MaxFrameSize", n)
	}
}

func TestDecodeOversizeFrameRejected(t *testing.T) {
	buf := &bytes.Buffer{}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], MaxFrameSize+1)
	buf.Write(lenBuf[:])

	codec := NewCodec(buf)
	_, err := codec.Decode()
	if !errors.Is(err, ErrOversizeFrame) {
		t.Fatalf("expected ErrOversizeFrame, got %v", err)
	}
}

func TestDecodeExactMaxFrameSizeAccepted(t *testing.T) {
	body, err := castpb.Marshal(&castpb.Envelope{
		SourceID: "sender-0", DestinationID: "receiver-0",
		Namespace: "urn:x-cast:com.google.cast.media", PayloadType: castpb.PayloadTypeString,
		PayloadUTF8: string(bytes.Repeat([]byte{'a'}, MaxFrameSize-64)),
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	buf := &bytes.Buffer{}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)

	if len(body) > MaxFrameSize {
		t.Fatalf("test setup invalid: body %d exceeds MaxFrameSize", len(body))
	}

	codec := NewCodec(buf)
	if _, err := codec.Decode(); err != nil {
		t.Fatalf("expected frame at the boundary to decode, got %v", err)
	}
}

func TestDecodeZeroLengthFrameFailsParse(t *testing.T) {
	buf := &bytes.Buffer{}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 0)
	buf.Write(lenBuf[:])

	codec := NewCodec(buf)
	if _, err := codec.Decode(); err == nil {
		t.Fatal("expected decode error for zero-length frame (missing required fields)")
	}
}

func TestDecodePartialFrameAtEOF(t *testing.T) {
	buf := &bytes.Buffer{}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 10)
	buf.Write(lenBuf[:])
	buf.Write([]byte{1, 2, 3}) // short of the declared 10 bytes

	codec := NewCodec(buf)
	_, err := codec.Decode()
	if !errors.Is(err, ErrUnderflowEOF) {
		t.Fatalf("expected ErrUnderflowEOF, got %v", err)
	}
}

func TestDecodeEmptyStreamReturnsEOF(t *testing.T) {
	codec := NewCodec(&bytes.Buffer{})
	_, err := codec.Decode()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
