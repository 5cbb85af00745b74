package channel

import (
	"testing"

	"castclient/cast/internal/wire"
)

func TestConnectDeviceDestination(t *testing.T) {
	r := NewRouter(func() (string, bool) { return "", false })
	env := r.ConnectDevice(`{"type":"CONNECT"}`)
	if env.DestinationID != DefaultReceiverID {
		t.Errorf("expected destination %q, got %q", DefaultReceiverID, env.DestinationID)
	}
	if env.SourceID != SenderID {
		t.Errorf("expected source %q, got %q", SenderID, env.SourceID)
	}
	if env.Namespace != string(NamespaceConnection) {
		t.Errorf("unexpected namespace %q", env.Namespace)
	}
}

func TestConnectAppDestination(t *testing.T) {
	r := NewRouter(func() (string, bool) { return "", false })
	env := r.ConnectApp("T1", `{"type":"CONNECT"}`)
	if env.DestinationID != "T1" {
		t.Errorf("expected destination T1, got %q", env.DestinationID)
	}
}

func TestHeartbeatAndReceiverDestination(t *testing.T) {
	r := NewRouter(func() (string, bool) { return "", false })
	if got := r.Heartbeat(`{"type":"PING"}`).DestinationID; got != DefaultReceiverID {
		t.Errorf("heartbeat destination = %q, want %q", got, DefaultReceiverID)
	}
	if got := r.Receiver(`{"type":"GET_STATUS"}`).DestinationID; got != DefaultReceiverID {
		t.Errorf("receiver destination = %q, want %q", got, DefaultReceiverID)
	}
}

func TestMediaDestinationUsesCurrentTransportID(t *testing.T) {
	r := NewRouter(func() (string, bool) { return "T1", true })
	env, err := r.Media(`{"type":"LOAD"}`)
	if err != nil {
		t.Fatalf("Media: %v", err)
	}
	if env.DestinationID != "T1" {
		t.Errorf("expected destination T1, got %q", env.DestinationID)
	}
}

func TestMediaWithoutSessionFails(t *testing.T) {
	r := NewRouter(func() (string, bool) { return "", false })
	_, err := r.Media(`{"type":"LOAD"}`)
	if err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func testEnvelope(ns, payload string) *wire.Envelope {
	return &wire.Envelope{
		SourceID: DefaultReceiverID, DestinationID: SenderID,
		Namespace: ns, PayloadType: wire.PayloadTypeString, PayloadUTF8: payload,
	}
}

func TestDispatchKnownNamespaceWithRequestID(t *testing.T) {
	env := testEnvelope(string(NamespaceMedia), `{"type":"MEDIA_STATUS","requestId":42}`)
	in, ok := Dispatch(env)
	if !ok {
		t.Fatal("expected dispatch to accept known namespace")
	}
	if in.RequestID != 42 {
		t.Errorf("expected requestId 42, got %d", in.RequestID)
	}
}

func TestDispatchSpontaneousZeroRequestID(t *testing.T) {
	env := testEnvelope(string(NamespaceMedia), `{"type":"MEDIA_STATUS","requestId":0}`)
	in, ok := Dispatch(env)
	if !ok {
		t.Fatal("expected dispatch to accept known namespace")
	}
	if in.RequestID != 0 {
		t.Errorf("expected spontaneous requestId 0, got %d", in.RequestID)
	}
}

func TestDispatchUnknownNamespaceDropped(t *testing.T) {
	env := testEnvelope("urn:x-cast:com.google.cast.unknown", `{}`)
	_, ok := Dispatch(env)
	if ok {
		t.Fatal("expected unknown namespace to be dropped")
	}
}
