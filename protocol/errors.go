package protocol

import "errors"

// Wire keys used by the simulator for error responses. Error responses
// carry one of these as a top-level key instead of "type".
const (
	KeyError      = "bngError"
	KeyValueError = "bngValueError"
)

var (
	// ErrFraming is returned when a frame header cannot be parsed as a
	// decimal length. The stream alignment cannot be trusted afterwards,
	// so this error is fatal for the connection it occurred on.
	ErrFraming = errors.New("malformed frame header")

	// ErrDecoding is returned when a complete frame payload does not
	// deserialize. Fatal for the connection, like ErrFraming.
	ErrDecoding = errors.New("malformed frame payload")

	// ErrEncoding is returned when a message contains a value the
	// payload encoding does not support.
	ErrEncoding = errors.New("unsupported value in message")

	// ErrVersionMismatch is returned when the handshake reveals that
	// client and simulator speak incompatible protocol versions.
	ErrVersionMismatch = errors.New("protocol version mismatch")

	// ErrConnectionLost is returned to every caller suspended on a
	// connection when its socket fails or is closed.
	ErrConnectionLost = errors.New("connection lost")

	// ErrTimeout is returned when a request's reply did not arrive
	// within the caller's deadline. The connection remains usable.
	ErrTimeout = errors.New("request timed out")

	// ErrOperationTimedOut is returned when the completion event of a
	// blocking operation did not arrive in time. The operation's actual
	// server-side effect is unknown to the client in that case.
	ErrOperationTimedOut = errors.New("operation timed out waiting for completion event")
)

// RemoteError is reported by the simulator for a generic internal
// failure of the in-flight request. The connection remains usable.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return "simulator error: " + e.Reason
}

// RemoteValueError is reported by the simulator when the in-flight
// request carried invalid arguments, such as an unknown vehicle or
// object id. The connection remains usable.
type RemoteValueError struct {
	Reason string
}

func (e *RemoteValueError) Error() string {
	return "simulator value error: " + e.Reason
}
