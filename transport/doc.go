// Package transport implements the connection layer of the simulator
// client: socket lifecycle, the version handshake, request/response
// correlation and per-vehicle connection multiplexing.
//
// The package focuses on:
//   - One read loop per connection, so no connection can stall another
//   - Matching replies to callers by expected message kind, tolerating
//     out-of-order delivery and type-less error responses
//   - Turning asynchronous simulator events into plain blocking waits
//     via registered event waiters
//   - Releasing every suspended caller with ErrConnectionLost when a
//     connection dies, instead of leaving it hung
//
// Key Components:
//
//   - Conn: a single live socket with its correlation state. Call is
//     the blocking send-and-wait primitive; Send is fire-and-forget;
//     WaitFor registers for asynchronous events.
//
//   - Registry: owns the primary connection and spawns per-vehicle
//     channels through the connection-upgrade handshake. Closing the
//     primary closes all vehicle channels; closing one vehicle channel
//     affects nothing else.
//
// Connections never reconnect on their own. When a Conn reports
// ErrConnectionLost the owner decides whether to dial a fresh one.
package transport
