// Package transport owns the TLS socket, the single reader/writer event
// loop and the connection bring-up sequence described in spec.md §4.5 and
// §5: dial, device CONNECT, heartbeat start, LAUNCH, await RECEIVER_STATUS,
// per-app CONNECT.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"castclient/cast/internal/channel"
	"castclient/cast/internal/heartbeat"
	"castclient/cast/internal/ledger"
	"castclient/cast/internal/media"
	"castclient/cast/internal/receiver"
	"castclient/cast/internal/wire"
)

// Conn is one live connection to a Cast device: the socket, the codec, and
// every component that shares it (router, ledger, heartbeat, the receiver
// session and the media controller).
type Conn struct {
	// id distinguishes overlapping reconnect attempts in logs — spec.md §9
	// assumes a fresh CONNECT after every socket re-establishment, so a
	// device address alone does not identify one connection attempt.
	id      string
	netConn net.Conn
	codec   *wire.Codec

	router    *channel.Router
	ledger    *ledger.Ledger
	heartbeat *heartbeat.Engine
	recv      *receiver.Manager
	mediaCtl  *media.Controller

	cmdCh   chan command
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group

	closeOnce      sync.Once
	onDisconnected func(error)
}

// Dial opens a TLS connection to a Cast device at addr ("host:port"), wires
// up every protocol component and runs the full bring-up sequence,
// returning only once the default media receiver is launched and its
// transport connected.
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	tlsConf := &tls.Config{InsecureSkipVerify: opts.insecureSkipVerify()} //nolint:gosec // Cast devices present self-signed certs
	dialer := &tls.Dialer{Config: tlsConf}

	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	return newConn(ctx, netConn, opts)
}

// newConn wires up every protocol component around an already-established
// net.Conn and runs the bring-up sequence. Split out of Dial so tests can
// drive the event loop over a net.Pipe without a real TLS handshake.
func newConn(ctx context.Context, netConn net.Conn, opts Options) (*Conn, error) {
	connCtx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(connCtx)

	c := &Conn{
		id:      uuid.NewString()[:8],
		netConn: netConn,
		codec:   wire.NewCodec(netConn),
		cmdCh:   make(chan command, opts.commandQueueSize()),
		ctx:     connCtx,
		cancel:  cancel,
		eg:      eg,
	}
	if opts.SubmitRateLimit > 0 {
		burst := opts.SubmitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.SubmitRateLimit), burst)
	}

	c.ledger = ledger.New()

	// recvMgr is wired into the router's TransportIDFunc via a closure over
	// this variable, since the Router must exist before the receiver
	// Manager that owns the session it describes.
	var recvMgr *receiver.Manager
	c.router = channel.NewRouter(func() (string, bool) {
		if recvMgr == nil {
			return "", false
		}
		return recvMgr.TransportIDFunc()()
	})

	c.heartbeat = heartbeat.New(opts.PingInterval, func(payload string) error {
		return c.submit(c.router.Heartbeat(payload))
	})

	recvMgr = receiver.NewManager(c.router, c.ledger, func(env *wire.Envelope) error {
		return c.submit(env)
	}, opts.requestTimeout())
	c.recv = recvMgr

	c.mediaCtl = media.NewController(c.router, c.ledger, func(env *wire.Envelope) error {
		return c.submit(env)
	}, opts.requestTimeout())

	c.eg.Go(func() error { return c.writeLoop(egCtx) })
	c.eg.Go(func() error { return c.readLoop(egCtx) })

	go func() {
		err := c.eg.Wait()
		c.teardown(err)
	}()

	log.Printf("[transport %s] bringing up connection to %s", c.id, netConn.RemoteAddr())
	if err := c.bringUp(ctx); err != nil {
		log.Printf("[transport %s] bring-up failed: %v", c.id, err)
		c.cancel()
		_ = netConn.Close()
		return nil, err
	}
	log.Printf("[transport %s] bring-up complete", c.id)

	// The watchdog window starts with the heartbeat: the per-app CONNECT wait
	// in bring-up is normally silent and must not count as lost liveness.
	c.heartbeat.Touch()
	c.eg.Go(func() error { return c.heartbeat.Run(egCtx) })

	return c, nil
}

// ID returns the short connection id stamped into this connection's log
// lines, so overlapping reconnect attempts can be told apart.
func (c *Conn) ID() string { return c.id }

// bringUp runs spec.md §4.5 steps 2, 4, 5 and 6: device CONNECT, LAUNCH,
// await RECEIVER_STATUS (folded into Launch) and per-app CONNECT. Step 3
// (start heartbeat) happens in newConn right after this returns.
func (c *Conn) bringUp(ctx context.Context) error {
	if err := c.submit(c.router.ConnectDevice(`{"type":"CONNECT"}`)); err != nil {
		return fmt.Errorf("transport: device connect: %w", err)
	}
	if _, err := c.recv.Launch(ctx); err != nil {
		return fmt.Errorf("transport: launch: %w", err)
	}
	if err := c.recv.ConnectApp(ctx); err != nil {
		return fmt.Errorf("transport: connect app: %w", err)
	}
	return nil
}

// OnDisconnected registers a callback fired once, when the connection's
// event loop exits for any reason (watchdog, socket error, or Close).
func (c *Conn) OnDisconnected(fn func(error)) { c.onDisconnected = fn }

// Receiver returns the receiver session manager for this connection.
func (c *Conn) Receiver() *receiver.Manager { return c.recv }

// Media returns the media playback controller for this connection.
func (c *Conn) Media() *media.Controller { return c.mediaCtl }

func (c *Conn) teardown(cause error) {
	log.Printf("[transport %s] tearing down: %v", c.id, cause)
	c.cancel()
	_ = c.netConn.Close()
	c.ledger.Shutdown()
	c.recv.Shutdown()
	c.mediaCtl.Shutdown()
	if c.onDisconnected != nil {
		c.onDisconnected(cause)
	}
}

// Close tears down the connection: it cancels the event loop, closes the
// socket (unblocking the blocked reader) and resolves every pending
// request with ledger.ErrDisconnected. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.netConn.Close()
		_ = c.eg.Wait()
	})
	return nil
}
