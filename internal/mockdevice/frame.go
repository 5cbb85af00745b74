package mockdevice

import (
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Namespace URNs, duplicated from the client's channel package rather than
// imported: a mock device is a second, independent implementation of the
// wire protocol, the same way a real receiver does not share code with any
// particular client.
const (
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceReceiver   = "urn:x-cast:com.google.cast.receiver"
	NamespaceMedia      = "urn:x-cast:com.google.cast.media"

	SenderID          = "sender-0"
	DefaultReceiverID = "receiver-0"
)

const maxFrameSize = 64 * 1024

const (
	fieldProtocolVersion = 1
	fieldSourceID        = 2
	fieldDestinationID   = 3
	fieldNamespace       = 4
	fieldPayloadType     = 5
	fieldPayloadUTF8     = 6
)

// envelope is the minimal CastMessage shape the mock device needs.
type envelope struct {
	SourceID      string
	DestinationID string
	Namespace     string
	PayloadUTF8   string
}

func encodeFrame(w io.Writer, e envelope) error {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldProtocolVersion, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 0)
	buf = protowire.AppendTag(buf, fieldSourceID, protowire.BytesType)
	buf = protowire.AppendString(buf, e.SourceID)
	buf = protowire.AppendTag(buf, fieldDestinationID, protowire.BytesType)
	buf = protowire.AppendString(buf, e.DestinationID)
	buf = protowire.AppendTag(buf, fieldNamespace, protowire.BytesType)
	buf = protowire.AppendString(buf, e.Namespace)
	buf = protowire.AppendTag(buf, fieldPayloadType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 0) // STRING
	buf = protowire.AppendTag(buf, fieldPayloadUTF8, protowire.BytesType)
	buf = protowire.AppendString(buf, e.PayloadUTF8)

	if len(buf) > maxFrameSize {
		return fmt.Errorf("mockdevice: outgoing frame exceeds %d bytes", maxFrameSize)
	}

	lenBuf := make([]byte, 4+len(buf))
	binary.BigEndian.PutUint32(lenBuf[:4], uint32(len(buf)))
	copy(lenBuf[4:], buf)
	_, err := w.Write(lenBuf)
	return err
}

func decodeFrame(r io.Reader) (envelope, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return envelope{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return envelope{}, fmt.Errorf("mockdevice: incoming frame exceeds %d bytes", maxFrameSize)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return envelope{}, err
	}

	var e envelope
	b := body
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return envelope{}, protowire.ParseError(tagLen)
		}
		b = b[tagLen:]
		switch num {
		case fieldSourceID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return envelope{}, protowire.ParseError(n)
			}
			e.SourceID = v
			b = b[n:]
		case fieldDestinationID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return envelope{}, protowire.ParseError(n)
			}
			e.DestinationID = v
			b = b[n:]
		case fieldNamespace:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return envelope{}, protowire.ParseError(n)
			}
			e.Namespace = v
			b = b[n:]
		case fieldPayloadUTF8:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return envelope{}, protowire.ParseError(n)
			}
			e.PayloadUTF8 = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return envelope{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return e, nil
}
