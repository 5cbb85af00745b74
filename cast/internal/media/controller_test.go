package media

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"castclient/cast/internal/channel"
	"castclient/cast/internal/ledger"
	"castclient/cast/internal/receiver"
	"castclient/cast/internal/wire"
)

// fakeDevice routes every envelope sent by the Controller into respond,
// then hands the reply straight back to HandleInbound, exercising the same
// path a real transport would use for both correlated and spontaneous
// messages.
type fakeDevice struct {
	ctrl    *Controller
	respond func(reqType string, reqID uint64) string
	sent    []wire.Envelope
}

func (f *fakeDevice) send(env *wire.Envelope) error {
	f.sent = append(f.sent, *env)
	var peek inboundEnvelope
	if err := json.Unmarshal([]byte(env.PayloadUTF8), &peek); err != nil {
		return nil
	}
	if f.respond == nil {
		return nil
	}
	reply := f.respond(peek.Type, peek.RequestID)
	if reply != "" {
		f.ctrl.HandleInbound(reply)
	}
	return nil
}

func newControllerForTest(fd *fakeDevice) *Controller {
	led := ledger.New()
	router := channel.NewRouter(func() (string, bool) { return "T1", true })
	c := NewController(router, led, fd.send, 50*time.Millisecond)
	fd.ctrl = c
	return c
}

func statusReply(reqID uint64, mediaSessionID int64, state PlayerState, reason IdleReason) string {
	resp := mediaStatusResponse{
		Header: Header{Type: "MEDIA_STATUS", RequestID: reqID},
		Status: []Status{{
			MediaSessionID: mediaSessionID,
			PlayerState:    state,
			IdleReason:     reason,
		}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestLoadAdoptsStatus(t *testing.T) {
	fd := &fakeDevice{respond: func(reqType string, reqID uint64) string {
		return statusReply(reqID, 42, PlayerStatePlaying, "")
	}}
	c := newControllerForTest(fd)

	st, err := c.Load(context.Background(), receiver.AppSessionID("S1"), MediaInfo{ContentID: "x"}, nil, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.MediaSessionID != 42 {
		t.Fatalf("unexpected media session id: %+v", st)
	}
	if cur, ok := c.Current(); !ok || cur.MediaSessionID != 42 {
		t.Fatalf("expected cached status, got %+v ok=%v", cur, ok)
	}

	var sentReq loadRequest
	if err := json.Unmarshal([]byte(fd.sent[0].PayloadUTF8), &sentReq); err != nil {
		t.Fatalf("decode sent LOAD: %v", err)
	}
	if sentReq.SessionID != "S1" {
		t.Fatalf("expected LOAD sessionId to carry the app session id, got %q", sentReq.SessionID)
	}
}

func TestPlayWithoutSessionFailsLocally(t *testing.T) {
	fd := &fakeDevice{}
	c := newControllerForTest(fd)

	_, err := c.Play(context.Background())
	if !errors.Is(err, ErrNoMediaSession) {
		t.Fatalf("expected ErrNoMediaSession, got %v", err)
	}
	if len(fd.sent) != 0 {
		t.Fatal("expected no round trip for a command with no active session")
	}
}

func TestSeekWithoutSessionFailsLocally(t *testing.T) {
	fd := &fakeDevice{}
	c := newControllerForTest(fd)

	_, err := c.Seek(context.Background(), 30, "")
	if !errors.Is(err, ErrNoMediaSession) {
		t.Fatalf("expected ErrNoMediaSession, got %v", err)
	}
}

func TestLoadCancelledMapsToTypedError(t *testing.T) {
	fd := &fakeDevice{respond: func(reqType string, reqID uint64) string {
		data, _ := json.Marshal(errorResponse{Header: Header{Type: "LOAD_CANCELLED", RequestID: reqID}})
		return string(data)
	}}
	c := newControllerForTest(fd)

	_, err := c.Load(context.Background(), receiver.AppSessionID("S1"), MediaInfo{ContentID: "x"}, nil, true)
	if !errors.Is(err, ErrLoadCancelled) {
		t.Fatalf("expected ErrLoadCancelled, got %v", err)
	}
}

func TestInvalidRequestCarriesReason(t *testing.T) {
	fd := &fakeDevice{respond: func(reqType string, reqID uint64) string {
		data, _ := json.Marshal(errorResponse{
			Header: Header{Type: "INVALID_REQUEST", RequestID: reqID},
			Reason: "INVALID_MEDIA_SESSION_ID",
		})
		return string(data)
	}}
	c := newControllerForTest(fd)

	_, err := c.Load(context.Background(), receiver.AppSessionID("S1"), MediaInfo{ContentID: "x"}, nil, true)
	var invalidReq *InvalidRequestError
	if !errors.As(err, &invalidReq) {
		t.Fatalf("expected *InvalidRequestError, got %v", err)
	}
	if invalidReq.Reason != "INVALID_MEDIA_SESSION_ID" {
		t.Fatalf("unexpected reason: %q", invalidReq.Reason)
	}
}

func TestSpontaneousMediaStatusUpdatesCache(t *testing.T) {
	fd := &fakeDevice{}
	c := newControllerForTest(fd)

	var seen Status
	c.OnStatusChanged(func(st Status) { seen = st })

	c.HandleInbound(statusReply(0, 7, PlayerStatePaused, ""))

	cur, ok := c.Current()
	if !ok || cur.MediaSessionID != 7 || cur.PlayerState != PlayerStatePaused {
		t.Fatalf("unexpected cached status: %+v ok=%v", cur, ok)
	}
	if seen.MediaSessionID != 7 {
		t.Fatalf("expected OnStatusChanged callback, got %+v", seen)
	}
}

func TestFinishedIdleStatusClearsSession(t *testing.T) {
	fd := &fakeDevice{}
	c := newControllerForTest(fd)

	c.HandleInbound(statusReply(0, 7, PlayerStateIdle, IdleReasonFinished))

	if _, ok := c.Current(); ok {
		t.Fatal("expected FINISHED idle status to clear the cached session")
	}
}

func TestCommandsBitmaskHas(t *testing.T) {
	supported := CommandPause | CommandSeek | CommandMute
	if !supported.Has(CommandPause) || !supported.Has(CommandMute) {
		t.Fatal("expected Has to report set flags")
	}
	if supported.Has(CommandSkipForward) {
		t.Fatal("expected Has to report unset flags as false")
	}
}
