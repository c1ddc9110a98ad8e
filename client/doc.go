// Package client provides the high-level API for remote-controlling a
// running simulator instance: connecting, driving scenarios through
// their lifecycle, stepping and pausing the simulation, and talking to
// individual vehicles over their dedicated channels.
//
// The package focuses on:
//
//   - Connection Management: Connect opens the primary control
//     connection and performs the protocol version handshake; Vehicle
//     negotiates and dials per-vehicle connections on demand.
//
//   - Blocking Operations: scenario loading, starting, stepping and
//     pausing only return once the simulator has reported completion
//     through its asynchronous event, not when the command was merely
//     accepted.
//
//   - Vehicle Control and Sensors: driving inputs, state polling and
//     generic sensor polling per vehicle, each isolated on its own
//     connection so slow sensor transfers do not stall other traffic.
//
// Key Components:
//
//   - Simulator: the top-level handle, one per simulator instance.
//   - Vehicle: a handle to one vehicle's dedicated channel.
//   - coordinator: sequences event-completed blocking operations.
//
// Unsolicited simulator messages that no operation claims surface on
// the Simulator.Events channel for extension use.
package client
