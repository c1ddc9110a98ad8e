package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"

	"github.com/simlink/simlink/protocol"
)

var log = logrus.WithField("component", "transport")

// State describes the lifecycle of a Conn.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn owns one live socket to the simulator: the primary control
// connection or a per-vehicle channel. Every Conn runs its own read
// loop, so a slow peer on one connection never stalls the others.
//
// At most one request may be awaiting its reply per Conn. Call
// enforces this by serializing concurrent callers; independent
// requests belong on independent Conns (one per vehicle).
type Conn struct {
	cfg  protocol.Config
	sock net.Conn

	state atomic.Int32

	// callMu serializes Call for the whole send+wait span.
	callMu sync.Mutex
	// writeMu protects frame writes; Send may be used concurrently
	// with an in-flight Call (e.g. fire-and-forget requests).
	writeMu sync.Mutex

	pending *pendingTable
	events  *xsync.MapOf[protocol.Kind, chan callResult]

	handlerMu sync.RWMutex
	handler   func(protocol.Message)

	closeOnce sync.Once
	closedCh  chan struct{}

	log *logrus.Entry
}

// Open dials the simulator's primary control socket described by cfg,
// performs the version handshake and starts the connection's read
// loop. A version disagreement surfaces as ErrVersionMismatch and
// leaves no connection behind.
func Open(cfg protocol.Config) (*Conn, error) {
	return open(cfg, cfg.Addr())
}

func open(cfg protocol.Config, addr string) (*Conn, error) {
	c := &Conn{
		cfg:      cfg,
		pending:  newPendingTable(),
		events:   xsync.NewMapOf[protocol.Kind, chan callResult](),
		closedCh: make(chan struct{}),
		log:      log.WithField("addr", addr),
	}
	c.state.Store(int32(StateConnecting))

	sock, err := dial(cfg, addr, c.log)
	if err != nil {
		return nil, err
	}
	c.sock = sock

	if err := c.hello(); err != nil {
		sock.Close()
		return nil, err
	}

	c.state.Store(int32(StateOpen))
	connectionsOpened.Inc()
	c.log.Debugf("Connection established, protocol %s", protocol.Version)

	go c.readLoop()
	return c, nil
}

// hello runs the version handshake synchronously, before the read loop
// exists: the Hello reply is the only message the simulator may send
// at this point.
func (c *Conn) hello() error {
	if c.cfg.RequestTimeout > 0 {
		c.sock.SetDeadline(time.Now().Add(c.cfg.RequestTimeout))
		defer c.sock.SetDeadline(time.Time{})
	}

	if err := protocol.WriteFrame(c.sock, protocol.NewHello(protocol.Version)); err != nil {
		return fmt.Errorf("handshake send failed: %w", err)
	}

	resp, err := protocol.ReadFrame(c.sock)
	if err != nil {
		return fmt.Errorf("handshake receive failed: %w", err)
	}
	if werr := resp.WireError(); werr != nil {
		return werr
	}
	if resp.Kind() != protocol.KindHello {
		return fmt.Errorf("%w: handshake answered with %q", protocol.ErrVersionMismatch, resp.Type())
	}
	if got := resp.String("protocolVersion"); got != protocol.Version {
		return fmt.Errorf("%w: client speaks %s, simulator speaks %s",
			protocol.ErrVersionMismatch, protocol.Version, got)
	}
	return nil
}

// State returns the connection's lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Closed returns a channel that is closed when the connection is torn
// down, for callers that select on connection loss.
func (c *Conn) Closed() <-chan struct{} {
	return c.closedCh
}

// RemoteAddr returns the peer address, or "" before the socket exists.
func (c *Conn) RemoteAddr() string {
	if c.sock == nil {
		return ""
	}
	return c.sock.RemoteAddr().String()
}

// Send frame-encodes msg and writes it without waiting for any reply.
// A write failure tears the connection down and surfaces as
// ErrConnectionLost.
func (c *Conn) Send(msg protocol.Message) error {
	if c.State() == StateClosed {
		return protocol.ErrConnectionLost
	}

	buf, err := protocol.EncodeFrame(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	if c.cfg.RequestTimeout > 0 {
		c.sock.SetWriteDeadline(time.Now().Add(c.cfg.RequestTimeout))
	}
	_, err = c.sock.Write(buf)
	c.writeMu.Unlock()

	if err != nil {
		c.teardown(err)
		return fmt.Errorf("%w: %v", protocol.ErrConnectionLost, err)
	}

	framesSent.Inc()
	bytesSent.Add(len(buf))
	c.log.Debugf("Sent %s", msg.Type())
	return nil
}

// Call sends msg and suspends the caller until a message of the
// expected kind arrives, the simulator reports an error for the
// request, the context deadline passes (ErrTimeout), or the connection
// is lost (ErrConnectionLost).
//
// Concurrent callers on the same Conn queue behind each other; replies
// can therefore never race for the pending slot.
func (c *Conn) Call(ctx context.Context, msg protocol.Message, expect protocol.Kind) (protocol.Message, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	if _, ok := ctx.Deadline(); !ok && c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	ch := c.pending.add(expect)
	defer c.pending.remove(expect)

	if err := c.Send(msg); err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.msg, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, protocol.ErrTimeout
		}
		return nil, ctx.Err()
	case <-c.closedCh:
		return nil, protocol.ErrConnectionLost
	}
}

// Waiter is a registered wait for one asynchronous event kind on a
// Conn. It must be registered before the triggering request is sent,
// otherwise the event can slip past unobserved.
type Waiter struct {
	conn *Conn
	kind protocol.Kind
	ch   chan callResult
}

// WaitFor registers a waiter for the next inbound message of the given
// kind that matches no pending request. Used for simulator-driven
// completion events and the vehicle connection handshake.
func (c *Conn) WaitFor(kind protocol.Kind) *Waiter {
	w := &Waiter{
		conn: c,
		kind: kind,
		ch:   make(chan callResult, 1),
	}
	c.events.Store(kind, w.ch)
	return w
}

// Wait suspends until the event arrives, the simulator reports an
// error for the operation in flight, the context deadline passes
// (ErrTimeout), or the connection is lost (ErrConnectionLost).
func (w *Waiter) Wait(ctx context.Context) (protocol.Message, error) {
	select {
	case res := <-w.ch:
		return res.msg, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, protocol.ErrTimeout
		}
		return nil, ctx.Err()
	case <-w.conn.closedCh:
		return nil, protocol.ErrConnectionLost
	}
}

// Cancel deregisters the waiter. Safe to call after the event arrived.
func (w *Waiter) Cancel() {
	if ch, ok := w.conn.events.Load(w.kind); ok && ch == w.ch {
		w.conn.events.Delete(w.kind)
	}
}

// SetHandler installs the handler for unsolicited messages that match
// neither a pending request nor an event waiter. The handler runs on
// the read loop goroutine and must not block.
func (c *Conn) SetHandler(handler func(protocol.Message)) {
	c.handlerMu.Lock()
	c.handler = handler
	c.handlerMu.Unlock()
}

// readLoop decodes frames until the socket dies. Malformed frames are
// fatal: once the stream alignment is lost every later byte is
// garbage, so the connection is torn down rather than resynchronized.
func (c *Conn) readLoop() {
	for {
		msg, err := protocol.ReadFrame(c.sock)
		if err != nil {
			if errors.Is(err, protocol.ErrFraming) || errors.Is(err, protocol.ErrDecoding) {
				wireErrors.Inc()
				c.log.Errorf("Unrecoverable wire error, closing connection: %v", err)
			} else if c.State() != StateClosed {
				c.log.Debugf("Read loop ended: %v", err)
			}
			c.teardown(err)
			return
		}

		framesReceived.Inc()
		c.dispatch(msg)
	}
}

// dispatch routes one inbound message: pending request first, then
// event waiters, then the unsolicited handler. Anything left over is
// dropped with a warning; an unknown message must never kill the loop.
func (c *Conn) dispatch(msg protocol.Message) {
	if werr := msg.WireError(); werr != nil {
		if c.pending.resolveError(werr) {
			return
		}
		if c.failWaiter(werr) {
			return
		}
		droppedMessages.Inc()
		c.log.Warnf("Dropping error response with no pending request: %v", werr)
		return
	}

	kind := msg.Kind()
	if c.pending.resolve(kind, msg) {
		return
	}

	if ch, ok := c.events.Load(kind); ok {
		select {
		case ch <- callResult{msg: msg}:
		default:
			droppedMessages.Inc()
			c.log.Warnf("Event waiter for %s not ready, dropping message", kind)
		}
		return
	}

	c.handlerMu.RLock()
	handler := c.handler
	c.handlerMu.RUnlock()
	if handler != nil {
		handler(msg)
		return
	}

	droppedMessages.Inc()
	c.log.Warnf("Dropping unsolicited message of type %q", msg.Type())
}

// failWaiter delivers a wire error to the first registered event
// waiter. Error responses carry no echo of the request's type, so an
// error received while no request is pending belongs to the operation
// that registered an event wait before sending.
func (c *Conn) failWaiter(err error) bool {
	failed := false
	c.events.Range(func(kind protocol.Kind, _ chan callResult) bool {
		ch, ok := c.events.LoadAndDelete(kind)
		if !ok {
			return true
		}
		select {
		case ch <- callResult{err: err}:
			failed = true
			return false
		default:
			// Waiter already holds an undelivered event; try the next one
			return true
		}
	})
	return failed
}

// teardown closes the socket and releases every suspended caller with
// ErrConnectionLost. Idempotent.
func (c *Conn) teardown(cause error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.closedCh)
		if c.sock != nil {
			c.sock.Close()
		}
		c.pending.failAll(protocol.ErrConnectionLost)
		connectionsClosed.Inc()
		if cause != nil {
			c.log.Debugf("Connection closed: %v", cause)
		}
	})
}

// Close tears the connection down. Callers suspended in Call or Wait
// are released with ErrConnectionLost. There is no automatic
// reconnection; owners decide whether to open a fresh Conn.
func (c *Conn) Close() error {
	c.teardown(nil)
	return nil
}
