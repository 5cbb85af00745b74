package transport

import (
	"context"
	"log"

	"castclient/cast/internal/channel"
	"castclient/cast/internal/wire"
)

// command is one outbound envelope waiting for the writer goroutine.
type command struct {
	env   *wire.Envelope
	errCh chan error
}

// submit enqueues env on the bounded command queue and blocks until the
// writer goroutine has encoded it (or the connection is torn down). It is
// the Sender passed to the heartbeat engine, receiver manager and media
// controller — they all see one synchronous, serialized writer, per
// spec.md §5.
func (c *Conn) submit(env *wire.Envelope) error {
	cmd := command{env: env, errCh: make(chan error, 1)}
	select {
	case c.cmdCh <- cmd:
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
	select {
	case err := <-cmd.errCh:
		return err
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// writeLoop is the connection's single writer. It drains the command queue,
// applying the optional submit-rate limiter before every frame.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.cmdCh:
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					cmd.errCh <- err
					continue
				}
			}
			err := c.codec.Encode(cmd.env)
			cmd.errCh <- err
			if err != nil {
				return err
			}
		}
	}
}

// readLoop is the connection's single reader. It decodes frames until the
// socket is closed (which unblocks the read immediately on shutdown) and
// dispatches each one to the owning component.
func (c *Conn) readLoop(ctx context.Context) error {
	for {
		env, err := c.codec.Decode()
		if err != nil {
			return err
		}

		c.heartbeat.Touch()

		in, ok := channel.Dispatch(env)
		if !ok {
			continue
		}

		switch in.Namespace {
		case channel.NamespaceHeartbeat:
			if err := c.heartbeat.HandleInbound(in.Payload); err != nil {
				log.Printf("[transport] heartbeat: %v", err)
			}
		case channel.NamespaceConnection:
			c.recv.HandleConnectionMessage(env.SourceID, in.Payload)
		case channel.NamespaceReceiver:
			if in.RequestID != 0 {
				c.ledger.Complete(in.RequestID, in.Payload, nil)
			} else {
				c.recv.HandleReceiverStatus(in.Payload)
			}
		case channel.NamespaceMedia:
			c.mediaCtl.HandleInbound(in.Payload)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
