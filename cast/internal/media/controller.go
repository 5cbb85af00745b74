// Package media implements the Media Playback Controller described in
// spec.md §4.6: LOAD/PLAY/PAUSE/STOP/SEEK/GET_STATUS against the currently
// launched application's media namespace, and the player state machine
// fed by spontaneous MEDIA_STATUS.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"castclient/cast/internal/channel"
	"castclient/cast/internal/ledger"
	"castclient/cast/internal/receiver"
	"castclient/cast/internal/wire"
)

// SessionID is the media channel's mediaSessionId, kept distinct from
// receiver.AppSessionID so the two id spaces can never be passed to the
// wrong call site, per spec.md §9.
type SessionID int64

// Sentinel errors from spec.md §7's Media category.
var (
	ErrNoMediaSession     = errors.New("media: no active media session")
	ErrLoadCancelled      = errors.New("media: load cancelled by a later load")
	ErrLoadFailed         = errors.New("media: load failed")
	ErrInvalidPlayerState = errors.New("media: invalid player state for command")
)

// ErrSessionLost is the error an outstanding media-channel request resolves
// with when the receiver application session that owns it disappears from a
// spontaneous RECEIVER_STATUS, per spec.md §4.5. It is the same sentinel as
// receiver.ErrSessionLost, re-exported here so media-channel callers can
// errors.Is against it without reaching into the receiver package.
var ErrSessionLost = receiver.ErrSessionLost

// InvalidRequestError is returned when the device rejects a command with
// INVALID_REQUEST, carrying the device's stated reason.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	if e.Reason == "" {
		return "media: invalid request"
	}
	return fmt.Sprintf("media: invalid request: %s", e.Reason)
}

// Commands is the supportedMediaCommands bitmask reported on Status.
type Commands int

const (
	CommandPause        Commands = 1 << 0
	CommandSeek         Commands = 1 << 1
	CommandVolume       Commands = 1 << 2
	CommandMute         Commands = 1 << 3
	CommandSkipForward  Commands = 1 << 4
	CommandSkipBackward Commands = 1 << 5
)

// Has reports whether the flag is set.
func (c Commands) Has(flag Commands) bool { return c&flag != 0 }

// Sender writes an envelope to the device.
type Sender func(env *wire.Envelope) error

// Controller owns the Media Controller Session for one launched application.
type Controller struct {
	router         *channel.Router
	ledger         *ledger.Ledger
	send           Sender
	requestTimeout time.Duration

	mu      sync.RWMutex
	current *Status

	onStatusChanged func(Status)
}

// NewController builds a Controller. requestTimeout bounds every correlated
// media-channel command.
func NewController(router *channel.Router, led *ledger.Ledger, send Sender, requestTimeout time.Duration) *Controller {
	return &Controller{router: router, ledger: led, send: send, requestTimeout: requestTimeout}
}

// OnStatusChanged registers a callback fired whenever the cached Status is
// replaced by a fresh MEDIA_STATUS.
func (c *Controller) OnStatusChanged(fn func(Status)) { c.onStatusChanged = fn }

// Current returns the last known Status and whether a media session is
// believed to be live.
func (c *Controller) Current() (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Status{}, false
	}
	return *c.current, true
}

func (c *Controller) currentSessionID() (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return 0, false
	}
	return c.current.MediaSessionID, true
}

// call issues a correlated media-channel request and blocks for the
// matching response, mapping the device's error-kind responses to typed
// errors.
func (c *Controller) call(ctx context.Context, kind string, p payload) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	id, wait := c.ledger.Register(ctx, kind)
	p.SetRequestID(id)

	data, err := json.Marshal(p)
	if err != nil {
		c.ledger.Cancel(id)
		return "", fmt.Errorf("media: encode %s: %w", kind, err)
	}

	env, err := c.router.Media(string(data))
	if err != nil {
		c.ledger.Cancel(id)
		return "", err
	}
	if err := c.send(env); err != nil {
		c.ledger.Cancel(id)
		return "", fmt.Errorf("media: send %s: %w", kind, err)
	}

	res := wait()
	return res.Payload, res.Err
}

// Load issues LOAD against the receiver application identified by
// sessionID (the receiver's Application Session id, not a mediaSessionId —
// the parameter type enforces this at compile time per spec.md §9) and
// waits for the resulting MEDIA_STATUS.
func (c *Controller) Load(ctx context.Context, sessionID receiver.AppSessionID, info MediaInfo, currentTime *float64, autoplay bool) (Status, error) {
	payload, err := c.call(ctx, "LOAD", &loadRequest{
		Header:      Header{Type: "LOAD"},
		SessionID:   string(sessionID),
		Media:       info,
		CurrentTime: currentTime,
		Autoplay:    autoplay,
	})
	if err != nil {
		return Status{}, err
	}
	return c.adoptStatus(payload)
}

func (c *Controller) adoptStatus(payloadJSON string) (Status, error) {
	var resp mediaStatusResponse
	if err := json.Unmarshal([]byte(payloadJSON), &resp); err != nil {
		return Status{}, fmt.Errorf("media: decode MEDIA_STATUS: %w", err)
	}
	if len(resp.Status) == 0 {
		return Status{}, ErrNoMediaSession
	}
	st := resp.Status[0]
	c.store(st)
	return st, nil
}

func (c *Controller) store(st Status) {
	c.mu.Lock()
	if st.PlayerState == PlayerStateIdle && st.IdleReason == IdleReasonFinished {
		c.current = nil
	} else {
		stCopy := st
		c.current = &stCopy
	}
	c.mu.Unlock()

	if c.onStatusChanged != nil {
		c.onStatusChanged(st)
	}
}

// requireSession returns the live mediaSessionId or ErrNoMediaSession
// without any round trip to the device, per spec.md §4.6: every command but
// LOAD requires a live session.
func (c *Controller) requireSession() (int64, error) {
	id, ok := c.currentSessionID()
	if !ok {
		return 0, ErrNoMediaSession
	}
	return id, nil
}

// Play issues PLAY for the current media session.
func (c *Controller) Play(ctx context.Context) (Status, error) {
	id, err := c.requireSession()
	if err != nil {
		return Status{}, err
	}
	payload, err := c.call(ctx, "PLAY", &playRequest{Header: Header{Type: "PLAY"}, MediaSessionID: id})
	if err != nil {
		return Status{}, err
	}
	return c.adoptStatus(payload)
}

// Pause issues PAUSE for the current media session.
func (c *Controller) Pause(ctx context.Context) (Status, error) {
	id, err := c.requireSession()
	if err != nil {
		return Status{}, err
	}
	payload, err := c.call(ctx, "PAUSE", &pauseRequest{Header: Header{Type: "PAUSE"}, MediaSessionID: id})
	if err != nil {
		return Status{}, err
	}
	return c.adoptStatus(payload)
}

// Stop issues the media-channel STOP for the current media session, ending
// playback without closing the application itself.
func (c *Controller) Stop(ctx context.Context) error {
	id, err := c.requireSession()
	if err != nil {
		return err
	}
	_, err = c.call(ctx, "STOP", &stopRequest{Header: Header{Type: "STOP"}, MediaSessionID: id})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	return nil
}

// Seek issues SEEK to currentTime, optionally requesting resumeState
// ("PLAYBACK_START"/"PLAYBACK_PAUSE") for the current media session.
func (c *Controller) Seek(ctx context.Context, currentTime float64, resumeState string) (Status, error) {
	id, err := c.requireSession()
	if err != nil {
		return Status{}, err
	}
	payload, err := c.call(ctx, "SEEK", &seekRequest{
		Header:         Header{Type: "SEEK"},
		MediaSessionID: id,
		CurrentTime:    &currentTime,
		ResumeState:    resumeState,
	})
	if err != nil {
		return Status{}, err
	}
	return c.adoptStatus(payload)
}

// Status issues GET_STATUS for the current media session.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	id, err := c.requireSession()
	if err != nil {
		return Status{}, err
	}
	payload, err := c.call(ctx, "GET_STATUS", &getStatusRequest{Header: Header{Type: "GET_STATUS"}, MediaSessionID: id})
	if err != nil {
		return Status{}, err
	}
	return c.adoptStatus(payload)
}

// inboundEnvelope peeks the type/requestId of a media-channel message
// without committing to a full schema, so HandleInbound can route between
// the MEDIA_STATUS and error-kind shapes.
type inboundEnvelope struct {
	Type      string `json:"type"`
	RequestID uint64 `json:"requestId"`
}

// HandleInbound processes every inbound media-channel envelope: it
// completes the matching pending command (mapping LOAD_CANCELLED,
// LOAD_FAILED, INVALID_PLAYER_STATE and INVALID_REQUEST to typed errors) and
// adopts spontaneous MEDIA_STATUS updates (requestId 0) into the cached
// Status.
func (c *Controller) HandleInbound(payloadJSON string) {
	var peek inboundEnvelope
	if err := json.Unmarshal([]byte(payloadJSON), &peek); err != nil {
		return
	}

	switch peek.Type {
	case "MEDIA_STATUS":
		if peek.RequestID != 0 {
			c.ledger.Complete(peek.RequestID, payloadJSON, nil)
			return
		}
		_, _ = c.adoptStatus(payloadJSON)
	case "LOAD_CANCELLED":
		c.completeWithError(peek.RequestID, ErrLoadCancelled)
	case "LOAD_FAILED":
		c.completeWithError(peek.RequestID, ErrLoadFailed)
	case "INVALID_PLAYER_STATE":
		c.completeWithError(peek.RequestID, ErrInvalidPlayerState)
	case "INVALID_REQUEST":
		var er errorResponse
		_ = json.Unmarshal([]byte(payloadJSON), &er)
		c.completeWithError(peek.RequestID, &InvalidRequestError{Reason: er.Reason})
	}
}

func (c *Controller) completeWithError(requestID uint64, err error) {
	if requestID == 0 {
		return
	}
	c.ledger.Complete(requestID, "", err)
}

// Shutdown clears the cached media session. Called by the transport on
// teardown.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
