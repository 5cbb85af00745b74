package cast

import (
	"time"

	"castclient/cast/internal/transport"
)

// Options configures a Client. The zero value is not meant to be built
// directly — use Connect with a set of Option values, each of which
// defaults sensibly when omitted, following the teacher's "load defaults on
// any missing field" posture (internal/config.Default in the teacher repo).
type Options struct {
	insecureSkipVerify *bool
	requestTimeout     time.Duration
	pingInterval       time.Duration
	commandQueueSize   int
	submitRateLimit    float64
	submitBurst        int
}

// Option mutates Options. Applied in order by Connect.
type Option func(*Options)

// WithInsecureSkipVerify overrides TLS certificate verification. Chromecast
// devices present self-signed certificates, so the client defaults to true;
// pass false only when dialing a receiver behind a real CA-issued cert.
func WithInsecureSkipVerify(skip bool) Option {
	return func(o *Options) { o.insecureSkipVerify = &skip }
}

// WithRequestTimeout bounds every correlated receiver/media command.
// Defaults to 10s.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.requestTimeout = d }
}

// WithPingInterval overrides the heartbeat cadence. Defaults to 5s; the
// liveness watchdog fires at 3x whatever interval is configured here.
func WithPingInterval(d time.Duration) Option {
	return func(o *Options) { o.pingInterval = d }
}

// WithCommandQueueSize bounds the outbound command queue depth. Defaults to
// 32.
func WithCommandQueueSize(n int) Option {
	return func(o *Options) { o.commandQueueSize = n }
}

// WithSubmitRateLimit caps outbound commands to rps commands/second with a
// token-bucket burst of burst. Disabled (no limiting) when rps is zero,
// which is the default.
func WithSubmitRateLimit(rps float64, burst int) Option {
	return func(o *Options) {
		o.submitRateLimit = rps
		o.submitBurst = burst
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

func (o Options) toTransport() transport.Options {
	return transport.Options{
		InsecureSkipVerify: o.insecureSkipVerify,
		RequestTimeout:     o.requestTimeout,
		PingInterval:       o.pingInterval,
		CommandQueueSize:   o.commandQueueSize,
		SubmitRateLimit:    o.submitRateLimit,
		SubmitBurst:        o.submitBurst,
	}
}
