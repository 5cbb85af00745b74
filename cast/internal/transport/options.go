package transport

import "time"

// Options configures a Conn. Zero-valued fields fall back to the package
// defaults applied in Dial.
type Options struct {
	// InsecureSkipVerify controls TLS certificate verification. Chromecast
	// devices present self-signed certificates, so this defaults to true —
	// there is no well-known CA to verify against on a LAN.
	InsecureSkipVerify *bool

	// RequestTimeout bounds every correlated receiver/media command.
	RequestTimeout time.Duration

	// PingInterval is the heartbeat cadence. Defaults to heartbeat.DefaultInterval.
	PingInterval time.Duration

	// CommandQueueSize bounds the outbound command queue depth.
	CommandQueueSize int

	// SubmitRateLimit, if non-zero, caps outbound commands per second via a
	// token bucket. Zero disables rate limiting.
	SubmitRateLimit float64
	SubmitBurst     int
}

const (
	defaultRequestTimeout   = 10 * time.Second
	defaultCommandQueueSize = 32
)

func (o Options) insecureSkipVerify() bool {
	if o.InsecureSkipVerify == nil {
		return true
	}
	return *o.InsecureSkipVerify
}

func (o Options) requestTimeout() time.Duration {
	if o.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return o.RequestTimeout
}

func (o Options) commandQueueSize() int {
	if o.CommandQueueSize <= 0 {
		return defaultCommandQueueSize
	}
	return o.CommandQueueSize
}
