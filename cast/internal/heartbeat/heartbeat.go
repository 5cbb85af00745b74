// Package heartbeat implements the PING/PONG keep-alive and the liveness
// watchdog described in spec.md §4.4.
package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the PING cadence mandated by spec.md §4.4.
const DefaultInterval = 5 * time.Second

// WatchdogMultiplier is how many ping intervals of silence declare the
// connection dead (3 × 5s = 15s per spec.md §4.4).
const WatchdogMultiplier = 3

// ErrDead is returned by Run when the watchdog concludes the remote end is
// unresponsive.
var ErrDead = errors.New("heartbeat: watchdog detected dead connection")

// Sender writes a heartbeat-channel payload (PING or PONG) to the device.
type Sender func(payloadJSON string) error

// Engine tracks liveness and drives the PING sender / PONG responder for
// one connection.
type Engine struct {
	interval time.Duration
	send     Sender

	mu          sync.Mutex
	lastInbound time.Time
}

// New builds an Engine. interval <= 0 defaults to DefaultInterval. The
// liveness clock starts at construction time (typically right after a
// successful device CONNECT, per spec.md §4.4).
func New(interval time.Duration, send Sender) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{interval: interval, send: send, lastInbound: time.Now()}
}

// Touch records that a frame (of any kind) was just observed on the wire.
// Callers invoke this for every inbound envelope, not only heartbeat ones —
// the watchdog tracks overall liveness, not heartbeat-specific liveness.
func (e *Engine) Touch() {
	e.mu.Lock()
	e.lastInbound = time.Now()
	e.mu.Unlock()
}

func (e *Engine) sinceLastInbound() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Since(e.lastInbound)
}

type heartbeatMessage struct {
	Type string `json:"type"`
}

// HandleInbound responds to a PING with an immediate PONG. PONG and any
// other payload on the heartbeat channel require no action beyond the
// liveness bookkeeping the caller already does via Touch.
func (e *Engine) HandleInbound(payloadJSON string) error {
	var msg heartbeatMessage
	if err := json.Unmarshal([]byte(payloadJSON), &msg); err != nil {
		return fmt.Errorf("heartbeat: decode inbound: %w", err)
	}
	if msg.Type == "PING" {
		if err := e.send(`{"type":"PONG"}`); err != nil {
			return fmt.Errorf("heartbeat: send pong: %w", err)
		}
	}
	return nil
}

// Run sends a PING every interval and, on the same tick, checks whether the
// watchdog threshold (WatchdogMultiplier × interval) of total silence has
// elapsed. It returns ErrDead when the watchdog fires, or ctx.Err() when ctx
// is cancelled (normal shutdown). Run is meant to be one goroutine in the
// transport event loop's errgroup.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if e.sinceLastInbound() >= e.interval*time.Duration(WatchdogMultiplier) {
				return ErrDead
			}
			if err := e.send(`{"type":"PING"}`); err != nil {
				return fmt.Errorf("heartbeat: send ping: %w", err)
			}
		}
	}
}
