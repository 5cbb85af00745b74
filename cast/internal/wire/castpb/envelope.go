// Package castpb implements the CastMessage wire schema (Google's
// cast_channel.proto) directly on top of protowire rather than full
// generated code: the message has seven fixed fields and no consumer ever
// needs proto.Message reflection, descriptors or dynamic typing, so hand
// encoding/decoding the wire bytes is the narrower and more honest tool.
package castpb

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// ProtocolVersion mirrors the CastMessage.ProtocolVersion enum.
type ProtocolVersion int32

// CastV2_1_0 is the only protocol version in active use and the default.
const CastV2_1_0 ProtocolVersion = 0

// PayloadType mirrors the CastMessage.PayloadType enum.
type PayloadType int32

const (
	PayloadTypeString PayloadType = 0
	PayloadTypeBinary PayloadType = 1
)

// Field numbers from the public cast_channel.proto schema.
const (
	fieldProtocolVersion = 1
	fieldSourceID        = 2
	fieldDestinationID   = 3
	fieldNamespace       = 4
	fieldPayloadType     = 5
	fieldPayloadUTF8     = 6
	fieldPayloadBinary   = 7
)

// Envelope is the decoded form of a CastMessage.
type Envelope struct {
	ProtocolVersion ProtocolVersion
	SourceID        string
	DestinationID   string
	Namespace       string
	PayloadType     PayloadType
	PayloadUTF8     string
	PayloadBinary   []byte
}

// Marshal encodes e as protobuf wire bytes. protocol_version, source_id,
// destination_id, namespace and payload_type are proto2 "required" fields
// and are always emitted; exactly one of payload_utf8/payload_binary is
// emitted depending on PayloadType.
func Marshal(e *Envelope) ([]byte, error) {
	if e.SourceID == "" || e.DestinationID == "" {
		return nil, fmt.Errorf("castpb: source_id and destination_id are required")
	}
	if e.Namespace == "" {
		return nil, fmt.Errorf("castpb: namespace is required")
	}

	var buf []byte
	buf = protowire.AppendTag(buf, fieldProtocolVersion, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.ProtocolVersion))

	buf = protowire.AppendTag(buf, fieldSourceID, protowire.BytesType)
	buf = protowire.AppendString(buf, e.SourceID)

	buf = protowire.AppendTag(buf, fieldDestinationID, protowire.BytesType)
	buf = protowire.AppendString(buf, e.DestinationID)

	buf = protowire.AppendTag(buf, fieldNamespace, protowire.BytesType)
	buf = protowire.AppendString(buf, e.Namespace)

	buf = protowire.AppendTag(buf, fieldPayloadType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.PayloadType))

	switch e.PayloadType {
	case PayloadTypeString:
		buf = protowire.AppendTag(buf, fieldPayloadUTF8, protowire.BytesType)
		buf = protowire.AppendString(buf, e.PayloadUTF8)
	case PayloadTypeBinary:
		buf = protowire.AppendTag(buf, fieldPayloadBinary, protowire.BytesType)
		buf = protowire.AppendBytes(buf, e.PayloadBinary)
	default:
		return nil, fmt.Errorf("castpb: unknown payload type %d", e.PayloadType)
	}

	return buf, nil
}

// Unmarshal decodes protobuf wire bytes into an Envelope. Unknown fields are
// skipped (forward-compatible with receiver firmware that adds fields).
func Unmarshal(b []byte) (*Envelope, error) {
	e := &Envelope{}
	var sawSource, sawDest, sawNamespace, sawPayloadType bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldProtocolVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
			}
			e.ProtocolVersion = ProtocolVersion(v)
			b = b[n:]
		case fieldSourceID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
			}
			e.SourceID = v
			sawSource = true
			b = b[n:]
		case fieldDestinationID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
			}
			e.DestinationID = v
			sawDest = true
			b = b[n:]
		case fieldNamespace:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
			}
			e.Namespace = v
			sawNamespace = true
			b = b[n:]
		case fieldPayloadType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
			}
			e.PayloadType = PayloadType(v)
			sawPayloadType = true
			b = b[n:]
		case fieldPayloadUTF8:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
			}
			// protowire.ConsumeString does not itself validate UTF-8 (it
			// only requires well-formed length-delimited bytes); the Cast
			// wire format does, per spec.md §4.1.
			if !utf8.ValidString(v) {
				return nil, fmt.Errorf("castpb: payload_utf8 is not valid UTF-8")
			}
			e.PayloadUTF8 = v
			b = b[n:]
		case fieldPayloadBinary:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
			}
			e.PayloadBinary = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if !sawSource || !sawDest || !sawNamespace || !sawPayloadType {
		return nil, fmt.Errorf("castpb: missing required field")
	}
	return e, nil
}
