// Package channel multiplexes envelopes over the four Cast v2 namespaces
// and stamps outgoing envelopes with the correct source/destination per
// spec.md §4.2.
package channel

import (
	"encoding/json"
	"errors"
	"log"

	"castclient/cast/internal/wire"
)

// Well-known sender/receiver ids and the default media receiver app id.
// Defined once here, per spec.md §9 ("global sender/destination constants
// ... defined once in the Channel Router module; never scattered").
const (
	SenderID                  = "sender-0"
	DefaultReceiverID         = "receiver-0"
	DefaultMediaReceiverAppID = "CC1AD845"
)

// Namespace identifies one of the four logical Cast channels.
type Namespace string

const (
	NamespaceConnection Namespace = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  Namespace = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceReceiver   Namespace = "urn:x-cast:com.google.cast.receiver"
	NamespaceMedia      Namespace = "urn:x-cast:com.google.cast.media"
)

// knownNamespaces backs IsKnown.
var knownNamespaces = map[Namespace]bool{
	NamespaceConnection: true,
	NamespaceHeartbeat:  true,
	NamespaceReceiver:   true,
	NamespaceMedia:      true,
}

// IsKnown reports whether ns is one of the four Cast v2 channels.
func IsKnown(ns string) bool { return knownNamespaces[Namespace(ns)] }

// ErrNoSession is returned by Media when no application has been launched
// yet, so there is no transport id to address.
var ErrNoSession = errors.New("channel: no application session")

// TransportIDFunc returns the transport id of the currently launched
// application, if any. The Router never owns the Application Session
// itself — spec.md §3 reserves that ownership for the Receiver Session
// Manager — it only reads the current value at stamping time.
type TransportIDFunc func() (transportID string, ok bool)

// Router multiplexes outgoing envelope construction and incoming envelope
// dispatch for one connection.
type Router struct {
	transportID TransportIDFunc
}

// NewRouter builds a Router that consults transportID for the media
// channel's destination.
func NewRouter(transportID TransportIDFunc) *Router {
	return &Router{transportID: transportID}
}

func stringEnvelope(ns Namespace, destinationID, payload string) *wire.Envelope {
	return &wire.Envelope{
		ProtocolVersion: 0,
		SourceID:        SenderID,
		DestinationID:   destinationID,
		Namespace:       string(ns),
		PayloadType:     wire.PayloadTypeString,
		PayloadUTF8:     payload,
	}
}

// ConnectDevice builds the device-level CONNECT envelope (destination
// receiver-0).
func (r *Router) ConnectDevice(payload string) *wire.Envelope {
	return stringEnvelope(NamespaceConnection, DefaultReceiverID, payload)
}

// ConnectApp builds the per-application CONNECT envelope, addressed to the
// launched app's transport id.
func (r *Router) ConnectApp(transportID, payload string) *wire.Envelope {
	return stringEnvelope(NamespaceConnection, transportID, payload)
}

// Heartbeat builds a heartbeat-channel envelope (PING or PONG), always
// addressed to receiver-0.
func (r *Router) Heartbeat(payload string) *wire.Envelope {
	return stringEnvelope(NamespaceHeartbeat, DefaultReceiverID, payload)
}

// Receiver builds a receiver-channel envelope, always addressed to
// receiver-0.
func (r *Router) Receiver(payload string) *wire.Envelope {
	return stringEnvelope(NamespaceReceiver, DefaultReceiverID, payload)
}

// Media builds a media-channel envelope addressed to the current
// application's transport id. Returns ErrNoSession if no app is launched.
func (r *Router) Media(payload string) (*wire.Envelope, error) {
	transportID, ok := r.transportID()
	if !ok {
		return nil, ErrNoSession
	}
	return stringEnvelope(NamespaceMedia, transportID, payload), nil
}

// Inbound is the dispatch decision for an incoming envelope.
type Inbound struct {
	Namespace Namespace
	RequestID uint64 // 0 means spontaneous: absent, zero, or unparseable.
	Payload   string
}

type requestIDPeek struct {
	RequestID uint64 `json:"requestId"`
}

// Dispatch classifies an inbound envelope by namespace and extracts its
// requestId for correlation, per spec.md §4.2. Unknown namespaces are
// logged and dropped (never fatal), matching ok=false.
func Dispatch(env *wire.Envelope) (Inbound, bool) {
	ns := Namespace(env.Namespace)
	if !knownNamespaces[ns] {
		log.Printf("[channel] dropping envelope on unknown namespace %q", env.Namespace)
		return Inbound{}, false
	}

	in := Inbound{Namespace: ns, Payload: env.PayloadUTF8}

	switch ns {
	case NamespaceMedia, NamespaceReceiver:
		var peek requestIDPeek
		if err := json.Unmarshal([]byte(env.PayloadUTF8), &peek); err == nil {
			in.RequestID = peek.RequestID
		}
	}

	return in, true
}
