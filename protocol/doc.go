// Package protocol defines the wire contract spoken between this
// client and the simulator: the message data model, the frame codec
// and the error taxonomy shared by all higher layers.
//
// The package focuses on:
//   - The Message type, a schema-less field mapping with typed
//     accessors and factory functions for every known request
//   - The Kind enumeration over known message types, replacing
//     string-keyed dispatch with switchable constants while keeping an
//     explicit unknown variant for forward compatibility
//   - Frame encoding: a 16-digit ASCII decimal length header followed
//     by a msgpack-encoded payload
//   - Error values for every failure class of the protocol, from
//     malformed frames to simulator-reported request errors
//
// Key Components:
//
//   - Message / Kind: data model and dispatch key for all
//     communication with the simulator.
//
//   - EncodeFrame / WriteFrame / ReadFrame: the frame codec. ReadFrame
//     consumes exactly one length-prefixed frame from a stream and
//     tolerates arbitrarily fragmented arrival.
//
//   - Config: connection settings (host, standard or legacy port,
//     timeouts, TCP tuning) consumed by the transport layer.
package protocol
