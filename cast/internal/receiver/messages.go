package receiver

// Header is embedded in every receiver-channel JSON payload. RequestID is
// set by Manager.call immediately before marshaling, mirroring the
// SetRequestId pattern used by Cast client JSON payloads throughout the
// ecosystem.
type Header struct {
	Type      string `json:"type"`
	RequestID uint64 `json:"requestId,omitempty"`
}

// SetRequestID implements the payload interface expected by Manager.call.
func (h *Header) SetRequestID(id uint64) { h.RequestID = id }

// payload is any receiver-channel request that carries a correlation id.
type payload interface {
	SetRequestID(id uint64)
}

// Volume mirrors the Cast Volume message. Level/Muted are pointers so an
// absent field can be omitted from the JSON entirely — the device treats a
// present "null" differently from an absent key, per spec.md §6.
type Volume struct {
	Level *float64 `json:"level,omitempty"`
	Muted *bool    `json:"muted,omitempty"`
}

// Namespace describes one namespace an application's transport supports.
type Namespace struct {
	Name string `json:"name"`
}

// Application is one entry in a RECEIVER_STATUS applications list.
type Application struct {
	AppID        string      `json:"appId"`
	DisplayName  string      `json:"displayName"`
	IsIdleScreen bool        `json:"isIdleScreen"`
	SessionID    string      `json:"sessionId"`
	TransportID  string      `json:"transportId"`
	StatusText   string      `json:"statusText"`
	Namespaces   []Namespace `json:"namespaces"`
}

// ReceiverStatus is the "status" object inside a RECEIVER_STATUS message.
type ReceiverStatus struct {
	Applications []Application `json:"applications"`
	Volume       Volume        `json:"volume"`
}

// receiverStatusResponse is a decoded RECEIVER_STATUS message.
type receiverStatusResponse struct {
	Header
	Status ReceiverStatus `json:"status"`
}

// launchRequest is the LAUNCH command payload.
type launchRequest struct {
	Header
	AppID string `json:"appId"`
}

// stopRequest is the STOP command payload (stop_app operation).
type stopRequest struct {
	Header
	SessionID string `json:"sessionId"`
}

// getStatusRequest is the GET_STATUS command payload.
type getStatusRequest struct {
	Header
}

// getAppAvailabilityRequest is the GET_APP_AVAILABILITY command payload.
type getAppAvailabilityRequest struct {
	Header
	AppID []string `json:"appId"`
}

// appAvailabilityResponse maps requested app ids to "APP_AVAILABLE" or
// "APP_UNAVAILABLE".
type appAvailabilityResponse struct {
	Header
	Availability map[string]string `json:"availability"`
}

// setVolumeRequest is the SET_VOLUME command payload.
type setVolumeRequest struct {
	Header
	Volume Volume `json:"volume"`
}

// connectionMessage decodes the "type" field of an untracked
// connection-channel message (CONNECT/CLOSE).
type connectionMessage struct {
	Type string `json:"type"`
}
