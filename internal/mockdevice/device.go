package mockdevice

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net"
)

const defaultTransportID = "web-1"

// Listener accepts loopback TLS connections and hands each one to the
// caller as a Peer speaking the Cast v2 frame format.
type Listener struct {
	ln net.Listener
}

// Listen binds to 127.0.0.1:0 (an OS-assigned free port) with an ephemeral
// self-signed certificate, mirroring a real Chromecast's self-signed TLS
// listener.
func Listen() (*Listener, error) {
	return ListenAddr("127.0.0.1:0")
}

// ListenAddr binds to addr (e.g. "127.0.0.1:8009" or "127.0.0.1:0" for an
// OS-assigned port) with an ephemeral self-signed certificate.
func ListenAddr(addr string) (*Listener, error) {
	cert, err := selfSignedCert()
	if err != nil {
		return nil, err
	}
	ln, err := tls.Listen("tcp", addr, &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		return nil, fmt.Errorf("mockdevice: listen: %w", err)
	}
	return &Listener{ln: ln}, nil
}

// Addr returns the "host:port" the listener is bound to.
func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Accept blocks for the next incoming connection and wraps it as a Peer.
func (l *Listener) Accept() (*Peer, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return &Peer{conn: conn}, nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Peer is one accepted connection, from the device's point of view.
type Peer struct {
	conn net.Conn
}

// Send writes one frame on namespace ns, from sourceID, carrying payload.
func (p *Peer) Send(ns, sourceID, payload string) error {
	return encodeFrame(p.conn, envelope{
		SourceID:      sourceID,
		DestinationID: SenderID,
		Namespace:     ns,
		PayloadUTF8:   payload,
	})
}

// Recv blocks for the next inbound frame and returns its namespace and
// decoded string payload.
func (p *Peer) Recv() (ns, payload string, err error) {
	env, err := decodeFrame(p.conn)
	if err != nil {
		return "", "", err
	}
	return env.Namespace, env.PayloadUTF8, nil
}

// Close closes the underlying connection.
func (p *Peer) Close() error { return p.conn.Close() }

type typePeek struct {
	Type      string `json:"type"`
	RequestID uint64 `json:"requestId"`
}

// ReceiverStatusJSON builds a RECEIVER_STATUS payload naming one launched
// application.
func ReceiverStatusJSON(requestID uint64, appID, sessionID, transportID string) string {
	data, _ := json.Marshal(map[string]any{
		"type":      "RECEIVER_STATUS",
		"requestId": requestID,
		"status": map[string]any{
			"applications": []map[string]any{{
				"appId":       appID,
				"displayName": "Default Media Receiver",
				"sessionId":   sessionID,
				"transportId": transportID,
				"namespaces":  []map[string]any{{"name": NamespaceMedia}},
			}},
		},
	})
	return string(data)
}

// EmptyReceiverStatusJSON builds a RECEIVER_STATUS with no applications
// (spec.md §9's "applications list is empty" scenario).
func EmptyReceiverStatusJSON(requestID uint64) string {
	data, _ := json.Marshal(map[string]any{
		"type":      "RECEIVER_STATUS",
		"requestId": requestID,
		"status":    map[string]any{"applications": []map[string]any{}},
	})
	return string(data)
}

// MediaStatusJSON builds a MEDIA_STATUS payload with one status entry.
func MediaStatusJSON(requestID uint64, mediaSessionID int64, playerState string, currentTime float64) string {
	data, _ := json.Marshal(map[string]any{
		"type":      "MEDIA_STATUS",
		"requestId": requestID,
		"status": []map[string]any{{
			"mediaSessionId": mediaSessionID,
			"playerState":    playerState,
			"currentTime":    currentTime,
		}},
	})
	return string(data)
}

// ErrorJSON builds a media-channel error response (LOAD_CANCELLED,
// LOAD_FAILED, INVALID_PLAYER_STATE, INVALID_REQUEST).
func ErrorJSON(kind string, requestID uint64) string {
	data, _ := json.Marshal(map[string]any{"type": kind, "requestId": requestID})
	return string(data)
}

// Serve runs the default scripted device behavior used by cmd/castmock: it
// answers the full bring-up sequence, PING/PONG, and a minimal media
// command set, logging every inbound message. It blocks until the peer
// disconnects.
func Serve(p *Peer) {
	var mediaSessionID int64 = 1
	var playerState = "IDLE"

	for {
		ns, payload, err := p.Recv()
		if err != nil {
			log.Printf("[castmock] peer disconnected: %v", err)
			return
		}

		var peek typePeek
		_ = json.Unmarshal([]byte(payload), &peek)
		log.Printf("[castmock] <- %s %s (requestId=%d)", ns, peek.Type, peek.RequestID)

		switch {
		case ns == NamespaceHeartbeat && peek.Type == "PING":
			_ = p.Send(NamespaceHeartbeat, DefaultReceiverID, `{"type":"PONG"}`)
		case ns == NamespaceConnection:
			// CONNECT/CLOSE require no response from the device side.
		case ns == NamespaceReceiver && peek.Type == "LAUNCH":
			_ = p.Send(NamespaceReceiver, DefaultReceiverID,
				ReceiverStatusJSON(peek.RequestID, "CC1AD845", "S1", defaultTransportID))
		case ns == NamespaceReceiver && peek.Type == "GET_STATUS":
			_ = p.Send(NamespaceReceiver, DefaultReceiverID,
				ReceiverStatusJSON(peek.RequestID, "CC1AD845", "S1", defaultTransportID))
		case ns == NamespaceReceiver && peek.Type == "GET_APP_AVAILABILITY":
			data, _ := json.Marshal(map[string]any{
				"type":         "APP_AVAILABILITY",
				"requestId":    peek.RequestID,
				"availability": map[string]string{"CC1AD845": "APP_AVAILABLE"},
			})
			_ = p.Send(NamespaceReceiver, DefaultReceiverID, string(data))
		case ns == NamespaceReceiver && peek.Type == "SET_VOLUME":
			// No response expected.
		case ns == NamespaceReceiver && peek.Type == "STOP":
			_ = p.Send(NamespaceReceiver, DefaultReceiverID, ReceiverStatusJSON(peek.RequestID, "", "", ""))
		case ns == NamespaceMedia && peek.Type == "LOAD":
			mediaSessionID++
			playerState = "PLAYING"
			_ = p.Send(NamespaceMedia, defaultTransportID, MediaStatusJSON(peek.RequestID, mediaSessionID, playerState, 0))
		case ns == NamespaceMedia && peek.Type == "PLAY":
			playerState = "PLAYING"
			_ = p.Send(NamespaceMedia, defaultTransportID, MediaStatusJSON(peek.RequestID, mediaSessionID, playerState, 0))
		case ns == NamespaceMedia && peek.Type == "PAUSE":
			playerState = "PAUSED"
			_ = p.Send(NamespaceMedia, defaultTransportID, MediaStatusJSON(peek.RequestID, mediaSessionID, playerState, 0))
		case ns == NamespaceMedia && peek.Type == "STOP":
			playerState = "IDLE"
			_ = p.Send(NamespaceMedia, defaultTransportID, MediaStatusJSON(peek.RequestID, mediaSessionID, playerState, 0))
		case ns == NamespaceMedia && peek.Type == "SEEK":
			_ = p.Send(NamespaceMedia, defaultTransportID, MediaStatusJSON(peek.RequestID, mediaSessionID, playerState, 0))
		case ns == NamespaceMedia && peek.Type == "GET_STATUS":
			_ = p.Send(NamespaceMedia, defaultTransportID, MediaStatusJSON(peek.RequestID, mediaSessionID, playerState, 0))
		}
	}
}
