package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/simlink/simlink/protocol"
	"github.com/simlink/simlink/transport"
)

// opState tracks one blocking operation through its lifecycle.
type opState int

const (
	opRequested opState = iota
	opAwaitingEvent
	opCompleted
	opFailed
)

func (s opState) String() string {
	switch s {
	case opRequested:
		return "requested"
	case opAwaitingEvent:
		return "awaiting-event"
	case opCompleted:
		return "completed"
	case opFailed:
		return "failed"
	}
	return "unknown"
}

// operation is one blocking command in flight: the request that was
// sent and the completion event kind that will finish it.
type operation struct {
	request protocol.Kind
	done    protocol.Kind
	state   opState
}

// coordinator sequences operations whose completion is signalled by an
// asynchronous simulator event rather than an immediate reply: load
// scenario, start scenario, step N ticks and friends. The completion
// waiter is registered before the command is sent, so the event cannot
// slip through between send and wait, and the caller's wait resolves
// only on the event, never on the command acknowledgement alone.
//
// One coordinator belongs to one connection; operations on it run one
// at a time. Operations on other connections are unaffected.
type coordinator struct {
	conn *transport.Conn
	mu   sync.Mutex
	log  *logrus.Entry
}

func newCoordinator(conn *transport.Conn, log *logrus.Entry) *coordinator {
	return &coordinator{conn: conn, log: log}
}

// run executes one blocking operation: send req, then suspend until
// the completion event of kind done arrives. If the event never
// arrives within the context deadline the call fails with
// ErrOperationTimedOut; whether the simulator carried the operation
// out is unknown to the client in that case.
func (c *coordinator) run(ctx context.Context, req protocol.Message, done protocol.Kind) (protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := &operation{request: req.Kind(), done: done, state: opRequested}

	w := c.conn.WaitFor(done)
	defer w.Cancel()

	if err := c.conn.Send(req); err != nil {
		op.state = opFailed
		return nil, err
	}
	op.state = opAwaitingEvent
	c.log.Debugf("Operation %s sent, awaiting %s", op.request, op.done)

	event, err := w.Wait(ctx)
	if err != nil {
		op.state = opFailed
		if errors.Is(err, protocol.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s never followed %s",
				protocol.ErrOperationTimedOut, op.done, op.request)
		}
		return nil, err
	}

	op.state = opCompleted
	c.log.Debugf("Operation %s completed", op.request)
	return event, nil
}
