package castpb

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	e := &Envelope{
		ProtocolVersion: CastV2_1_0,
		SourceID:        "sender-0",
		DestinationID:   "receiver-0",
		Namespace:       "urn:x-cast:com.google.cast.tp.connection",
		PayloadType:     PayloadTypeString,
		PayloadUTF8:     `{"type":"CONNECT"}`,
	}

	b, err := Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.SourceID != e.SourceID || got.DestinationID != e.DestinationID ||
		got.Namespace != e.Namespace || got.PayloadUTF8 != e.PayloadUTF8 ||
		got.PayloadType != e.PayloadType {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestMarshalBinaryPayload(t *testing.T) {
	e := &Envelope{
		SourceID:      "sender-0",
		DestinationID: "receiver-0",
		Namespace:     "urn:x-cast:com.google.cast.media",
		PayloadType:   PayloadTypeBinary,
		PayloadBinary: []byte{0x01, 0x02, 0x03},
	}
	b, err := Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(got.PayloadBinary) != string(e.PayloadBinary) {
		t.Fatalf("binary payload mismatch: got %v, want %v", got.PayloadBinary, e.PayloadBinary)
	}
}

func TestMarshalMissingIdentity(t *testing.T) {
	_, err := Marshal(&Envelope{Namespace: "urn:x-cast:com.google.cast.tp.heartbeat"})
	if err == nil {
		t.Fatal("expected error for missing source_id/destination_id")
	}
}

func TestUnmarshalMissingRequiredField(t *testing.T) {
	if _, err := Unmarshal(nil); err == nil {
		t.Fatal("expected error decoding empty buffer")
	}
}

func TestUnmarshalInvalidBytes(t *testing.T) {
	if _, err := Unmarshal([]byte{0xFF, 0xFF, 0xFF}); err == nil {
		t.Fatal("expected error for garbage bytes")
	}
}

// TestUnmarshalNonUTF8Payload hand-assembles a CastMessage whose
// payload_utf8 bytes are not valid UTF-8, since Marshal's string-typed
// PayloadUTF8 field can never carry invalid UTF-8 itself. Per spec.md §4.1's
// decode contract, this must fail with a decode error.
func TestUnmarshalNonUTF8Payload(t *testing.T) {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldProtocolVersion, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 0)
	buf = protowire.AppendTag(buf, fieldSourceID, protowire.BytesType)
	buf = protowire.AppendString(buf, "sender-0")
	buf = protowire.AppendTag(buf, fieldDestinationID, protowire.BytesType)
	buf = protowire.AppendString(buf, "receiver-0")
	buf = protowire.AppendTag(buf, fieldNamespace, protowire.BytesType)
	buf = protowire.AppendString(buf, "urn:x-cast:com.google.cast.tp.connection")
	buf = protowire.AppendTag(buf, fieldPayloadType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(PayloadTypeString))
	buf = protowire.AppendTag(buf, fieldPayloadUTF8, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte{0xFF, 0xFE, 0xFD})

	if _, err := Unmarshal(buf); err == nil {
		t.Fatal("expected decode error for non-UTF-8 payload_utf8")
	}
}
