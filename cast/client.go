// Package cast is the public facade over the Cast protocol client: dial a
// device, launch the default media receiver, and drive playback. Everything
// below internal/ is an implementation detail; this file and its siblings
// are the only supported entry points, per spec.md §6's exposed-operations
// list.
package cast

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"castclient/cast/internal/ledger"
	"castclient/cast/internal/media"
	"castclient/cast/internal/receiver"
	"castclient/cast/internal/transport"
)

// Re-exported types so callers never import cast/internal/... directly.
type (
	MediaInfo       = media.MediaInfo
	MediaStatus     = media.Status
	MediaCommands   = media.Commands
	MediaVolume     = media.Volume
	StreamType      = media.StreamType
	PlayerState     = media.PlayerState
	IdleReason      = media.IdleReason
	Metadata        = media.Metadata
	Image           = media.Image
	ReceiverStatus  = receiver.ReceiverStatus
	ReceiverSession = receiver.Session
	ReceiverVolume  = receiver.Volume
	AppSessionID    = receiver.AppSessionID
)

// supportedMediaCommands bit flags, re-exported under the package's own
// naming per spec.md §4.6.
const (
	CommandPause        = media.CommandPause
	CommandSeek         = media.CommandSeek
	CommandVolume       = media.CommandVolume
	CommandMute         = media.CommandMute
	CommandSkipForward  = media.CommandSkipForward
	CommandSkipBackward = media.CommandSkipBackward
)

// Sentinel and typed errors from spec.md §7, re-exported so callers can use
// errors.Is/errors.As without reaching into internal packages.
var (
	ErrNoSession         = receiver.ErrNoSession
	ErrLaunchFailed      = receiver.ErrLaunchFailed
	ErrTransportRejected = receiver.ErrTransportRejected
	ErrSessionLost       = receiver.ErrSessionLost

	ErrNoMediaSession     = media.ErrNoMediaSession
	ErrLoadCancelled      = media.ErrLoadCancelled
	ErrLoadFailed         = media.ErrLoadFailed
	ErrInvalidPlayerState = media.ErrInvalidPlayerState

	ErrTimeout      = ledger.ErrTimeout
	ErrCancelled    = ledger.ErrCancelled
	ErrDisconnected = ledger.ErrDisconnected
)

// InvalidRequestError is returned when the device rejects a media command
// with INVALID_REQUEST.
type InvalidRequestError = media.InvalidRequestError

// Client is a connection to one Cast device, from bring-up through
// shutdown. The zero value is not usable; build one with Connect.
type Client struct {
	mu   sync.Mutex
	addr string
	opts Options
	conn *transport.Conn
	bus  *eventBus
}

// Connect dials host:port, runs the full bring-up sequence (device CONNECT,
// heartbeat start, LAUNCH of the default media receiver, and the per-app
// CONNECT) and returns a ready-to-use Client. The returned Client already
// has a launched application session; LaunchDefaultReceiver is only needed
// to relaunch after StopApp.
func Connect(ctx context.Context, host string, port int, opts ...Option) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	o := buildOptions(opts)

	c := &Client{addr: addr, opts: o, bus: newEventBus()}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, err := transport.Dial(ctx, c.addr, c.opts.toTransport())
	if err != nil {
		return fmt.Errorf("cast: connect %s: %w", c.addr, err)
	}

	conn.OnDisconnected(func(cause error) {
		c.bus.emit(Event{Kind: EventDisconnected, Err: cause})
	})
	conn.Receiver().OnStatusChanged(func(sess receiver.Session) {
		c.bus.emit(Event{Kind: EventReceiverStatusChanged, ReceiverSession: sess})
	})
	conn.Receiver().OnSessionLost(func(cause error) {
		c.bus.emit(Event{Kind: EventSessionLost, Err: cause})
	})
	conn.Media().OnStatusChanged(func(st media.Status) {
		c.bus.emit(Event{Kind: EventMediaStatusChanged, MediaStatus: st})
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.bus.emit(Event{Kind: EventConnected})
	return nil
}

func (c *Client) transportConn() (*transport.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, errors.New("cast: client is not connected")
	}
	return c.conn, nil
}

// Events returns the Client's event stream (connected, disconnected,
// media_status_changed, receiver_status_changed, session_lost). The channel
// is never closed; stop reading from it once the Client is shut down.
func (c *Client) Events() <-chan Event {
	return c.bus.ch
}

// LaunchDefaultReceiver (re-)launches the default media receiver and
// connects its transport. Connect already does this once; call this again
// only to relaunch after StopApp.
func (c *Client) LaunchDefaultReceiver(ctx context.Context) (ReceiverSession, error) {
	conn, err := c.transportConn()
	if err != nil {
		return ReceiverSession{}, err
	}
	sess, err := conn.Receiver().Launch(ctx)
	if err != nil {
		return ReceiverSession{}, err
	}
	if err := conn.Receiver().ConnectApp(ctx); err != nil {
		return ReceiverSession{}, err
	}
	return sess, nil
}

// ReceiverSessionInfo returns the currently tracked Application Session, if
// any.
func (c *Client) ReceiverSessionInfo() (ReceiverSession, bool) {
	conn, err := c.transportConn()
	if err != nil {
		return ReceiverSession{}, false
	}
	return conn.Receiver().Current()
}

// ReceiverGetStatus issues GET_STATUS on the receiver channel.
func (c *Client) ReceiverGetStatus(ctx context.Context) (ReceiverStatus, error) {
	conn, err := c.transportConn()
	if err != nil {
		return ReceiverStatus{}, err
	}
	return conn.Receiver().Status(ctx)
}

// AppAvailability issues GET_APP_AVAILABILITY for appIDs.
func (c *Client) AppAvailability(ctx context.Context, appIDs []string) (map[string]string, error) {
	conn, err := c.transportConn()
	if err != nil {
		return nil, err
	}
	return conn.Receiver().AppAvailability(ctx, appIDs)
}

// SetVolume issues SET_VOLUME. A nil level or muted means "leave unchanged"
// and is omitted from the wire payload entirely, per spec.md §6 scenario 6.
func (c *Client) SetVolume(level *float64, muted *bool) error {
	conn, err := c.transportConn()
	if err != nil {
		return err
	}
	return conn.Receiver().SetVolume(level, muted)
}

// StopApp stops the launched application itself (not just playback) and
// drops the tracked Application Session.
func (c *Client) StopApp(ctx context.Context) error {
	conn, err := c.transportConn()
	if err != nil {
		return err
	}
	return conn.Receiver().StopApp(ctx)
}

// Load issues LOAD for info and waits for the resulting MEDIA_STATUS,
// adopting its mediaSessionId. currentTime is optional (nil means device
// default, usually 0).
func (c *Client) Load(ctx context.Context, info MediaInfo, currentTime *float64, autoplay bool) (MediaStatus, error) {
	conn, err := c.transportConn()
	if err != nil {
		return MediaStatus{}, err
	}
	sess, ok := conn.Receiver().Current()
	if !ok {
		return MediaStatus{}, ErrNoSession
	}
	return conn.Media().Load(ctx, sess.SessionID, info, currentTime, autoplay)
}

// Play resumes the current media session.
func (c *Client) Play(ctx context.Context) (MediaStatus, error) {
	conn, err := c.transportConn()
	if err != nil {
		return MediaStatus{}, err
	}
	return conn.Media().Play(ctx)
}

// Pause pauses the current media session.
func (c *Client) Pause(ctx context.Context) (MediaStatus, error) {
	conn, err := c.transportConn()
	if err != nil {
		return MediaStatus{}, err
	}
	return conn.Media().Pause(ctx)
}

// Stop ends the current media session's playback (the application itself
// stays launched; use StopApp to close it).
func (c *Client) Stop(ctx context.Context) error {
	conn, err := c.transportConn()
	if err != nil {
		return err
	}
	return conn.Media().Stop(ctx)
}

// Seek requests currentTime with the given resumeState
// ("PLAYBACK_START"/"PLAYBACK_PAUSE", or "" for device default). The device
// clamps currentTime to [0, duration]; this client does not.
func (c *Client) Seek(ctx context.Context, currentTime float64, resumeState string) (MediaStatus, error) {
	conn, err := c.transportConn()
	if err != nil {
		return MediaStatus{}, err
	}
	return conn.Media().Seek(ctx, currentTime, resumeState)
}

// MediaGetStatus issues GET_STATUS on the media channel.
func (c *Client) MediaGetStatus(ctx context.Context) (MediaStatus, error) {
	conn, err := c.transportConn()
	if err != nil {
		return MediaStatus{}, err
	}
	return conn.Media().Status(ctx)
}

// CurrentMediaStatus returns the last cached MEDIA_STATUS without a round
// trip, and whether a media session is believed live.
func (c *Client) CurrentMediaStatus() (MediaStatus, bool) {
	conn, err := c.transportConn()
	if err != nil {
		return MediaStatus{}, false
	}
	return conn.Media().Current()
}

// Reconnect re-dials the device and re-runs the full bring-up sequence,
// then issues GET_STATUS to recover context, per spec.md §9's resolved open
// question: a fresh CONNECT is required after every socket
// re-establishment, so no session state is carried over from the old
// connection.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	old := c.conn
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	if err := c.dial(ctx); err != nil {
		return err
	}
	_, err := c.ReceiverGetStatus(ctx)
	return err
}

// Shutdown tears down the connection: every pending request resolves with
// ErrDisconnected, the socket closes, and EventDisconnected fires on the
// event stream.
func (c *Client) Shutdown() error {
	conn, err := c.transportConn()
	if err != nil {
		return nil
	}
	return conn.Close()
}
