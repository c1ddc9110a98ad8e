package protocol

import (
	"fmt"
	"io"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// HeaderLen is the width of the frame length header: 16 ASCII decimal
// digits, zero padded. The value must match the peer exactly; a
// mismatch misaligns the stream and corrupts every later message.
const HeaderLen = 16

// maxPayloadLen caps accepted frame sizes well below the absurd values
// a corrupted header could yield, while leaving room for dense sensor
// payloads sent over the socket path.
const maxPayloadLen = 1 << 30

// EncodeFrame serializes a message and prepends the fixed-width decimal
// length header. The returned slice is the exact byte sequence to put
// on the wire.
func EncodeFrame(msg Message) ([]byte, error) {
	payload, err := msgpack.Marshal(map[string]any(msg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	buf := make([]byte, 0, HeaderLen+len(payload))
	buf = append(buf, fmt.Sprintf("%016d", len(payload))...)
	buf = append(buf, payload...)
	return buf, nil
}

// WriteFrame encodes msg and writes the complete frame to w.
func WriteFrame(w io.Writer, msg Message) error {
	buf, err := EncodeFrame(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadFrame reads exactly one frame from r and decodes its payload.
// It first reads the full header, then exactly the announced number of
// payload bytes, so partially arrived frames are simply waited for and
// never misinterpreted.
//
// I/O errors from r are returned as-is so the caller can distinguish a
// closed connection from malformed data; ErrFraming and ErrDecoding
// indicate the stream itself is corrupt and the connection cannot be
// trusted afterwards.
func ReadFrame(r io.Reader) (Message, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length, err := strconv.ParseUint(string(header[:]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrFraming, string(header[:]))
	}
	if length > maxPayloadLen {
		return nil, fmt.Errorf("%w: payload length %d exceeds limit", ErrFraming, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	var msg Message
	if err := msgpack.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return msg, nil
}
