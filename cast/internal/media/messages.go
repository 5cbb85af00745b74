package media

import "encoding/json"

// Header is embedded in every media-channel JSON payload.
type Header struct {
	Type      string `json:"type"`
	RequestID uint64 `json:"requestId,omitempty"`
}

// SetRequestID implements the payload interface expected by Controller.call.
func (h *Header) SetRequestID(id uint64) { h.RequestID = id }

// payload is any media-channel request that carries a correlation id.
type payload interface {
	SetRequestID(id uint64)
}

// StreamType mirrors the Cast media StreamType enum.
type StreamType string

const (
	StreamTypeNone     StreamType = "NONE"
	StreamTypeBuffered StreamType = "BUFFERED"
	StreamTypeLive     StreamType = "LIVE"
)

// MetadataType selects which Metadata variant is populated, per spec.md §3's
// tagged-variant Metadata.
type MetadataType int

const (
	MetadataGeneric MetadataType = iota
	MetadataMovie
	MetadataTVShow
	MetadataMusicTrack
	MetadataPhoto
)

// Metadata is the tagged-variant media metadata object. Only the fields
// relevant to MetadataType are meaningful; Marshal/Unmarshal round-trip
// through the wire's flat metadataType-discriminated JSON object rather than
// a Go-level sum type, matching how the device actually sends it.
type Metadata struct {
	Type MetadataType

	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`

	// Movie/TV
	SeriesTitle string `json:"seriesTitle,omitempty"`
	Season      int    `json:"season,omitempty"`
	Episode     int    `json:"episode,omitempty"`

	// Music
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"albumName,omitempty"`
	TrackNumber int    `json:"trackNumber,omitempty"`

	// Photo
	Location    string `json:"location,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`

	Images []Image `json:"images,omitempty"`
}

// Image is one artwork entry inside Metadata.Images.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// metadataWire is the device's actual wire shape: a single flat object
// discriminated by metadataType.
type metadataWire struct {
	MetadataType int     `json:"metadataType"`
	Title        string  `json:"title,omitempty"`
	Subtitle     string  `json:"subtitle,omitempty"`
	SeriesTitle  string  `json:"seriesTitle,omitempty"`
	Season       int     `json:"season,omitempty"`
	Episode      int     `json:"episode,omitempty"`
	Artist       string  `json:"artist,omitempty"`
	Album        string  `json:"albumName,omitempty"`
	TrackNumber  int     `json:"trackNumber,omitempty"`
	Location     string  `json:"location,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Images       []Image `json:"images,omitempty"`
}

// MarshalJSON flattens Metadata into the device's metadataType-discriminated
// shape.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(metadataWire{
		MetadataType: int(m.Type),
		Title:        m.Title,
		Subtitle:     m.Subtitle,
		SeriesTitle:  m.SeriesTitle,
		Season:       m.Season,
		Episode:      m.Episode,
		Artist:       m.Artist,
		Album:        m.Album,
		TrackNumber:  m.TrackNumber,
		Location:     m.Location,
		Width:        m.Width,
		Height:       m.Height,
		Images:       m.Images,
	})
}

// UnmarshalJSON lifts the device's flat shape back into Metadata.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	var w metadataWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = Metadata{
		Type:        MetadataType(w.MetadataType),
		Title:       w.Title,
		Subtitle:    w.Subtitle,
		SeriesTitle: w.SeriesTitle,
		Season:      w.Season,
		Episode:     w.Episode,
		Artist:      w.Artist,
		Album:       w.Album,
		TrackNumber: w.TrackNumber,
		Location:    w.Location,
		Width:       w.Width,
		Height:      w.Height,
		Images:      w.Images,
	}
	return nil
}

// MediaInfo describes the content to LOAD, per spec.md §3's Data Model.
type MediaInfo struct {
	ContentID   string     `json:"contentId"`
	ContentType string     `json:"contentType"`
	StreamType  StreamType `json:"streamType,omitempty"`
	Duration    *float64   `json:"duration,omitempty"`
	Metadata    *Metadata  `json:"metadata,omitempty"`
}

// Volume is the media channel's own Volume object, distinct from the
// receiver channel's Volume, per spec.md §9.
type Volume struct {
	Level *float64 `json:"level,omitempty"`
	Muted *bool    `json:"muted,omitempty"`
}

// PlayerState mirrors the Cast media PlayerState enum.
type PlayerState string

const (
	PlayerStateIdle      PlayerState = "IDLE"
	PlayerStatePlaying   PlayerState = "PLAYING"
	PlayerStatePaused    PlayerState = "PAUSED"
	PlayerStateBuffering PlayerState = "BUFFERING"
)

// IdleReason mirrors the Cast media IdleReason enum, populated only when
// PlayerState is IDLE.
type IdleReason string

const (
	IdleReasonCancelled   IdleReason = "CANCELLED"
	IdleReasonInterrupted IdleReason = "INTERRUPTED"
	IdleReasonFinished    IdleReason = "FINISHED"
	IdleReasonError       IdleReason = "ERROR"
)

// Status is one entry in a MEDIA_STATUS message's "status" array.
type Status struct {
	MediaSessionID         int64       `json:"mediaSessionId"`
	PlaybackRate           float64     `json:"playbackRate"`
	PlayerState            PlayerState `json:"playerState"`
	IdleReason             IdleReason  `json:"idleReason,omitempty"`
	CurrentTime            float64     `json:"currentTime"`
	SupportedMediaCommands Commands    `json:"supportedMediaCommands"`
	Volume                 Volume      `json:"volume"`
	Media                  *MediaInfo  `json:"media,omitempty"`
}

// mediaStatusResponse is a decoded MEDIA_STATUS message.
type mediaStatusResponse struct {
	Header
	Status []Status `json:"status"`
}

// errorResponse decodes the four media-channel error kinds: LOAD_CANCELLED,
// LOAD_FAILED, INVALID_PLAYER_STATE, INVALID_REQUEST.
type errorResponse struct {
	Header
	Reason string `json:"reason,omitempty"`
}

// loadRequest is the LOAD command payload. SessionID carries the receiver
// application's sessionId (not a mediaSessionId) — the caller supplies it as
// a receiver.AppSessionID to make the distinction enforceable at compile
// time, per spec.md §9.
type loadRequest struct {
	Header
	SessionID   string    `json:"sessionId"`
	Media       MediaInfo `json:"media"`
	CurrentTime *float64  `json:"currentTime,omitempty"`
	Autoplay    bool      `json:"autoplay"`
}

// playRequest is the PLAY command payload.
type playRequest struct {
	Header
	MediaSessionID int64 `json:"mediaSessionId"`
}

// pauseRequest is the PAUSE command payload.
type pauseRequest struct {
	Header
	MediaSessionID int64 `json:"mediaSessionId"`
}

// stopRequest is the media-channel STOP command payload (distinct from the
// receiver channel's STOP, which stops the application itself).
type stopRequest struct {
	Header
	MediaSessionID int64 `json:"mediaSessionId"`
}

// seekRequest is the SEEK command payload.
type seekRequest struct {
	Header
	MediaSessionID int64    `json:"mediaSessionId"`
	CurrentTime    *float64 `json:"currentTime,omitempty"`
	ResumeState    string   `json:"resumeState,omitempty"`
}

// getStatusRequest is the media-channel GET_STATUS command payload.
type getStatusRequest struct {
	Header
	MediaSessionID int64 `json:"mediaSessionId,omitempty"`
}
