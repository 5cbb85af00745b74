package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"castclient/cast/internal/channel"
	"castclient/cast/internal/ledger"
	"castclient/cast/internal/wire"
)

// fakeDevice completes the next pending receiver-channel request as soon as
// send observes it, simulating a mock Chromecast that replies inline.
type fakeDevice struct {
	led       *ledger.Ledger
	respond   func(reqType string, reqID uint64) (payload string, err error)
	sentCalls []wire.Envelope
}

func (f *fakeDevice) send(env *wire.Envelope) error {
	f.sentCalls = append(f.sentCalls, *env)
	var peek struct {
		Type      string `json:"type"`
		RequestID uint64 `json:"requestId"`
	}
	if err := json.Unmarshal([]byte(env.PayloadUTF8), &peek); err != nil {
		return nil
	}
	if peek.RequestID == 0 || f.respond == nil {
		return nil
	}
	payload, err := f.respond(peek.Type, peek.RequestID)
	f.led.Complete(peek.RequestID, payload, err)
	return nil
}

func newManagerForTest(fd *fakeDevice) *Manager {
	led := ledger.New()
	fd.led = led
	router := channel.NewRouter(func() (string, bool) { return "", false })
	return NewManager(router, led, fd.send, 50*time.Millisecond)
}

func TestLaunchAdoptsMatchingApplication(t *testing.T) {
	fd := &fakeDevice{respond: func(reqType string, reqID uint64) (string, error) {
		resp := receiverStatusResponse{
			Header: Header{Type: "RECEIVER_STATUS", RequestID: reqID},
			Status: ReceiverStatus{Applications: []Application{{
				AppID: channel.DefaultMediaReceiverAppID, SessionID: "S1", TransportID: "T1",
			}}},
		}
		data, _ := json.Marshal(resp)
		return string(data), nil
	}}
	m := newManagerForTest(fd)

	sess, err := m.Launch(context.Background())
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if sess.SessionID != "S1" || sess.TransportID != "T1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if cur, ok := m.Current(); !ok || cur.TransportID != "T1" {
		t.Fatalf("expected Current to reflect launched session, got %+v ok=%v", cur, ok)
	}
}

func TestLaunchFailsWhenAppMissingFromStatus(t *testing.T) {
	fd := &fakeDevice{respond: func(reqType string, reqID uint64) (string, error) {
		resp := receiverStatusResponse{Header: Header{Type: "RECEIVER_STATUS", RequestID: reqID}}
		data, _ := json.Marshal(resp)
		return string(data), nil
	}}
	m := newManagerForTest(fd)

	_, err := m.Launch(context.Background())
	if !errors.Is(err, ErrLaunchFailed) {
		t.Fatalf("expected ErrLaunchFailed, got %v", err)
	}
}

func TestLaunchTimesOut(t *testing.T) {
	fd := &fakeDevice{respond: nil} // never completes
	m := newManagerForTest(fd)

	_, err := m.Launch(context.Background())
	if !errors.Is(err, ErrLaunchFailed) {
		t.Fatalf("expected ErrLaunchFailed on timeout, got %v", err)
	}
}

func TestSetVolumeOmitsAbsentFields(t *testing.T) {
	fd := &fakeDevice{}
	m := newManagerForTest(fd)

	level := 0.5
	if err := m.SetVolume(&level, nil); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if len(fd.sentCalls) != 1 {
		t.Fatalf("expected exactly one envelope sent, got %d", len(fd.sentCalls))
	}
	got := fd.sentCalls[0].PayloadUTF8
	want := `{"type":"SET_VOLUME","volume":{"level":0.5}}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConnectAppRejectedOnClose(t *testing.T) {
	fd := &fakeDevice{respond: func(reqType string, reqID uint64) (string, error) {
		resp := receiverStatusResponse{
			Header: Header{Type: "RECEIVER_STATUS", RequestID: reqID},
			Status: ReceiverStatus{Applications: []Application{{
				AppID: channel.DefaultMediaReceiverAppID, SessionID: "S1", TransportID: "T1",
			}}},
		}
		data, _ := json.Marshal(resp)
		return string(data), nil
	}}
	m := newManagerForTest(fd)
	if _, err := m.Launch(context.Background()); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		m.HandleConnectionMessage("T1", `{"type":"CLOSE"}`)
	}()

	err := m.ConnectApp(context.Background())
	if !errors.Is(err, ErrTransportRejected) {
		t.Fatalf("expected ErrTransportRejected, got %v", err)
	}
}

func TestHandleReceiverStatusInvalidatesOnSessionLost(t *testing.T) {
	fd := &fakeDevice{respond: func(reqType string, reqID uint64) (string, error) {
		resp := receiverStatusResponse{
			Header: Header{Type: "RECEIVER_STATUS", RequestID: reqID},
			Status: ReceiverStatus{Applications: []Application{{
				AppID: channel.DefaultMediaReceiverAppID, SessionID: "S1", TransportID: "T1",
			}}},
		}
		data, _ := json.Marshal(resp)
		return string(data), nil
	}}
	m := newManagerForTest(fd)
	if _, err := m.Launch(context.Background()); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	var lostErr error
	m.OnSessionLost(func(err error) { lostErr = err })

	emptyStatus, _ := json.Marshal(receiverStatusResponse{Header: Header{Type: "RECEIVER_STATUS"}})
	m.HandleReceiverStatus(string(emptyStatus))

	if _, ok := m.Current(); ok {
		t.Fatal("expected session to be invalidated")
	}
	if !errors.Is(lostErr, ErrSessionLost) {
		t.Fatalf("expected ErrSessionLost callback, got %v", lostErr)
	}
}
