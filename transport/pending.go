package transport

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/simlink/simlink/protocol"
)

// callResult carries the outcome of one request to its waiting caller.
type callResult struct {
	msg protocol.Message
	err error
}

// pendingTable tracks the requests currently awaiting a typed reply on
// one connection. Replies are matched by the kind the caller declared
// it expects, so they may arrive in any order relative to other
// traffic. Wire-level error responses carry no type echo and resolve
// whichever request is pending instead.
type pendingTable struct {
	waiters *xsync.MapOf[protocol.Kind, chan callResult]
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		waiters: xsync.NewMapOf[protocol.Kind, chan callResult](),
	}
}

// add registers a waiter for the given reply kind and returns the
// channel its result will be delivered on.
func (t *pendingTable) add(kind protocol.Kind) chan callResult {
	ch := make(chan callResult, 1)
	t.waiters.Store(kind, ch)
	return ch
}

// remove drops the waiter for the given kind, if still registered.
func (t *pendingTable) remove(kind protocol.Kind) {
	t.waiters.Delete(kind)
}

// resolve delivers msg to the waiter expecting its kind. Returns false
// if no such waiter is registered.
func (t *pendingTable) resolve(kind protocol.Kind, msg protocol.Message) bool {
	ch, ok := t.waiters.LoadAndDelete(kind)
	if !ok {
		return false
	}
	ch <- callResult{msg: msg}
	return true
}

// resolveError fails the currently pending request with err. The
// simulator does not echo the original request's type on failure, so
// the first registered waiter is resolved regardless of the kind it
// expects. Returns false if nothing was pending.
func (t *pendingTable) resolveError(err error) bool {
	resolved := false
	t.waiters.Range(func(kind protocol.Kind, _ chan callResult) bool {
		ch, ok := t.waiters.LoadAndDelete(kind)
		if !ok {
			return true
		}
		ch <- callResult{err: err}
		resolved = true
		return false
	})
	return resolved
}

// failAll releases every waiter with err. Called on connection loss so
// no caller is left suspended forever.
func (t *pendingTable) failAll(err error) {
	t.waiters.Range(func(kind protocol.Kind, _ chan callResult) bool {
		if ch, ok := t.waiters.LoadAndDelete(kind); ok {
			ch <- callResult{err: err}
		}
		return true
	})
}
