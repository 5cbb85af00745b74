// Package receiver owns the Application Session: launching the default
// media receiver, tracking sessionId/transportId, issuing the per-app
// CONNECT, and the receiver-level commands (status, availability, volume,
// stop), per spec.md §4.5.
package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"castclient/cast/internal/channel"
	"castclient/cast/internal/ledger"
	"castclient/cast/internal/wire"
)

// AppSessionID is the receiver application's sessionId. Kept as a distinct
// type from media.SessionID so a LOAD can never be issued with a
// mediaSessionId in the sessionId slot, per spec.md §9.
type AppSessionID string

// TransportID addresses a launched application's own channel.
type TransportID string

// Session is a snapshot of the currently launched Application Session.
type Session struct {
	AppID       string
	SessionID   AppSessionID
	TransportID TransportID
	DisplayName string
	Namespaces  []string
	StatusText  string
}

// Sentinel errors from spec.md §7's Session category.
var (
	ErrLaunchFailed      = errors.New("receiver: launch failed")
	ErrTransportRejected = errors.New("receiver: application transport rejected connect")
	ErrSessionLost       = errors.New("receiver: application session lost")
	ErrNoSession         = errors.New("receiver: no application session")
)

// Sender writes an envelope to the device. Supplied by the transport event
// loop, which owns the single writer to the socket.
type Sender func(env *wire.Envelope) error

// Manager owns the Application Session for one connection.
type Manager struct {
	router         *channel.Router
	ledger         *ledger.Ledger
	send           Sender
	requestTimeout time.Duration

	mu      sync.RWMutex
	session *Session

	onStatusChanged func(Session)
	onSessionLost   func(error)

	connMu              sync.Mutex
	awaitingTransportID TransportID
	closeCh             chan struct{}
}

// NewManager builds a Manager. requestTimeout bounds every correlated
// receiver-channel command.
func NewManager(router *channel.Router, led *ledger.Ledger, send Sender, requestTimeout time.Duration) *Manager {
	return &Manager{router: router, ledger: led, send: send, requestTimeout: requestTimeout}
}

// OnStatusChanged registers a callback fired whenever the tracked session
// is created or updated by a RECEIVER_STATUS.
func (m *Manager) OnStatusChanged(fn func(Session)) { m.onStatusChanged = fn }

// OnSessionLost registers a callback fired when the launched app disappears
// from a RECEIVER_STATUS or the transport CONNECT is rejected.
func (m *Manager) OnSessionLost(fn func(error)) { m.onSessionLost = fn }

// Current returns the tracked session and whether one is live.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// TransportIDFunc adapts Current to channel.TransportIDFunc for the Router.
func (m *Manager) TransportIDFunc() channel.TransportIDFunc {
	return func() (string, bool) {
		s, ok := m.Current()
		if !ok {
			return "", false
		}
		return string(s.TransportID), true
	}
}

func (m *Manager) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.requestTimeout)
}

// call issues a correlated receiver-channel request and blocks for the
// matching RECEIVER_STATUS/response.
func (m *Manager) call(ctx context.Context, kind string, p payload) (string, error) {
	ctx, cancel := m.deadline(ctx)
	defer cancel()

	id, wait := m.ledger.Register(ctx, kind)
	p.SetRequestID(id)

	data, err := json.Marshal(p)
	if err != nil {
		m.ledger.Cancel(id)
		return "", fmt.Errorf("receiver: encode %s: %w", kind, err)
	}

	env := m.router.Receiver(string(data))
	if err := m.send(env); err != nil {
		m.ledger.Cancel(id)
		return "", fmt.Errorf("receiver: send %s: %w", kind, err)
	}

	res := wait()
	return res.Payload, res.Err
}

// Launch sends LAUNCH for the default media receiver and waits for the
// RECEIVER_STATUS naming it, per spec.md §4.5 steps 4-5. On success the
// tracked Session is populated and ConnectApp becomes usable.
func (m *Manager) Launch(ctx context.Context) (Session, error) {
	payload, err := m.call(ctx, "LAUNCH", &launchRequest{
		Header: Header{Type: "LAUNCH"},
		AppID:  channel.DefaultMediaReceiverAppID,
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	sess, err := m.adoptStatus(payload, channel.DefaultMediaReceiverAppID)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// adoptStatus decodes a RECEIVER_STATUS payload, locates wantAppID (if
// non-empty) and stores/refreshes the tracked Session.
func (m *Manager) adoptStatus(payloadJSON, wantAppID string) (Session, error) {
	var resp receiverStatusResponse
	if err := json.Unmarshal([]byte(payloadJSON), &resp); err != nil {
		return Session{}, fmt.Errorf("receiver: decode RECEIVER_STATUS: %w", err)
	}

	var found *Application
	for i := range resp.Status.Applications {
		app := &resp.Status.Applications[i]
		if wantAppID == "" || app.AppID == wantAppID {
			found = app
			break
		}
	}
	if found == nil {
		if wantAppID != "" {
			return Session{}, fmt.Errorf("%w: app %s not present in RECEIVER_STATUS", ErrLaunchFailed, wantAppID)
		}
		return Session{}, ErrNoSession
	}

	namespaces := make([]string, 0, len(found.Namespaces))
	for _, ns := range found.Namespaces {
		namespaces = append(namespaces, ns.Name)
	}

	sess := Session{
		AppID:       found.AppID,
		SessionID:   AppSessionID(found.SessionID),
		TransportID: TransportID(found.TransportID),
		DisplayName: found.DisplayName,
		Namespaces:  namespaces,
		StatusText:  found.StatusText,
	}

	m.mu.Lock()
	m.session = &sess
	m.mu.Unlock()

	if m.onStatusChanged != nil {
		m.onStatusChanged(sess)
	}
	return sess, nil
}

// ConnectApp sends the per-application CONNECT (bring-up step 6) and waits
// up to m.requestTimeout for a CLOSE on the connection channel from that
// transport id, which spec.md §4.5 treats as TransportRejected. No CLOSE
// within the window is treated as acceptance — the protocol has no
// explicit CONNECT acknowledgement.
func (m *Manager) ConnectApp(ctx context.Context) error {
	sess, ok := m.Current()
	if !ok {
		return ErrNoSession
	}

	m.connMu.Lock()
	m.awaitingTransportID = sess.TransportID
	closeCh := make(chan struct{}, 1)
	m.closeCh = closeCh
	m.connMu.Unlock()
	defer func() {
		m.connMu.Lock()
		m.closeCh = nil
		m.connMu.Unlock()
	}()

	env := m.router.ConnectApp(string(sess.TransportID), `{"type":"CONNECT"}`)
	if err := m.send(env); err != nil {
		return fmt.Errorf("receiver: connect app: %w", err)
	}

	timer := time.NewTimer(m.requestTimeout)
	defer timer.Stop()

	select {
	case <-closeCh:
		m.invalidate(ErrTransportRejected)
		return ErrTransportRejected
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleConnectionMessage processes a spontaneous connection-channel
// envelope (CONNECT echoes or CLOSE). Only CLOSE from the transport id
// currently being awaited by ConnectApp has any effect.
func (m *Manager) HandleConnectionMessage(sourceID, payloadJSON string) {
	var msg connectionMessage
	if err := json.Unmarshal([]byte(payloadJSON), &msg); err != nil {
		return
	}
	if msg.Type != "CLOSE" {
		return
	}
	m.connMu.Lock()
	defer m.connMu.Unlock()
	if m.closeCh != nil && TransportID(sourceID) == m.awaitingTransportID {
		select {
		case m.closeCh <- struct{}{}:
		default:
		}
	}
}

// HandleReceiverStatus processes a spontaneous RECEIVER_STATUS (requestId
// 0). It overwrites the tracked session, or invalidates it with
// SessionLost if the currently tracked app disappears from the list.
func (m *Manager) HandleReceiverStatus(payloadJSON string) {
	m.mu.RLock()
	current := m.session
	m.mu.RUnlock()

	wantAppID := ""
	if current != nil {
		wantAppID = current.AppID
	}

	if _, err := m.adoptStatus(payloadJSON, wantAppID); err != nil {
		if current != nil && errors.Is(err, ErrLaunchFailed) {
			m.invalidate(ErrSessionLost)
		}
	}
}

// invalidate drops the tracked session and cancels every outstanding
// correlated request (receiver and media alike, since both share this
// connection's ledger) with cause, per spec.md §4.5: "any outstanding media
// requests are cancelled with SessionLost."
func (m *Manager) invalidate(cause error) {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	m.ledger.CancelAll(cause)
	if m.onSessionLost != nil {
		m.onSessionLost(cause)
	}
}

// Status issues GET_STATUS and returns the decoded receiver status.
func (m *Manager) Status(ctx context.Context) (ReceiverStatus, error) {
	payload, err := m.call(ctx, "GET_STATUS", &getStatusRequest{Header: Header{Type: "GET_STATUS"}})
	if err != nil {
		return ReceiverStatus{}, err
	}
	var resp receiverStatusResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return ReceiverStatus{}, fmt.Errorf("receiver: decode status: %w", err)
	}
	return resp.Status, nil
}

// AppAvailability issues GET_APP_AVAILABILITY for the given app ids.
func (m *Manager) AppAvailability(ctx context.Context, appIDs []string) (map[string]string, error) {
	payload, err := m.call(ctx, "GET_APP_AVAILABILITY", &getAppAvailabilityRequest{
		Header: Header{Type: "GET_APP_AVAILABILITY"},
		AppID:  appIDs,
	})
	if err != nil {
		return nil, err
	}
	var resp appAvailabilityResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("receiver: decode availability: %w", err)
	}
	return resp.Availability, nil
}

// SetVolume issues SET_VOLUME. level/muted nil means "unchanged" and is
// omitted from the JSON entirely, per spec.md §6/§8 scenario 6. No response
// is awaited — the protocol does not correlate SET_VOLUME.
func (m *Manager) SetVolume(level *float64, muted *bool) error {
	req := &setVolumeRequest{
		Header: Header{Type: "SET_VOLUME"},
		Volume: Volume{Level: level, Muted: muted},
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("receiver: encode SET_VOLUME: %w", err)
	}
	return m.send(m.router.Receiver(string(data)))
}

// StopApp issues STOP with the current sessionId and drops the tracked
// Application Session on success.
func (m *Manager) StopApp(ctx context.Context) error {
	sess, ok := m.Current()
	if !ok {
		return ErrNoSession
	}
	_, err := m.call(ctx, "STOP", &stopRequest{
		Header:    Header{Type: "STOP"},
		SessionID: string(sess.SessionID),
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	return nil
}

// Shutdown clears the tracked session. Called by the transport on
// teardown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
}
