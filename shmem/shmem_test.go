package shmem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/simlink/simlink/protocol"
)

// fakeConn records negotiation traffic and can simulate a connection
// that died after the region was opened
type fakeConn struct {
	calls   []protocol.Message
	sends   []protocol.Message
	callErr error
	sendErr error
}

func (c *fakeConn) Call(ctx context.Context, msg protocol.Message, expect protocol.Kind) (protocol.Message, error) {
	c.calls = append(c.calls, msg)
	if c.callErr != nil {
		return nil, c.callErr
	}
	return protocol.Message{"type": expect.String()}, nil
}

func (c *fakeConn) Send(msg protocol.Message) error {
	c.sends = append(c.sends, msg)
	return c.sendErr
}

func regionName(t *testing.T) string {
	return fmt.Sprintf("simlink-test-%d-%s", os.Getpid(), t.Name())
}

// TestOpenRead tests negotiation, mapping and local reads
func TestOpenRead(t *testing.T) {
	conn := &fakeConn{}
	name := regionName(t)

	h, err := Open(context.Background(), conn, name, 4096)
	if err != nil {
		t.Fatalf("Failed to open shared memory: %v", err)
	}
	defer h.Close()

	if len(conn.calls) != 1 || conn.calls[0].Kind() != protocol.KindOpenShmem {
		t.Errorf("Open must negotiate with an OpenShmem request, got %+v", conn.calls)
	}
	if h.Name() != name || h.Size() != 4096 {
		t.Errorf("Handle reports %q/%d, want %q/4096", h.Name(), h.Size(), name)
	}

	// The simulator writes through its own mapping of the same file
	if err := os.WriteFile(filepath.Join("/dev/shm", name), []byte("sensor payload"), 0o600); err != nil {
		t.Fatalf("Failed to write through the region file: %v", err)
	}

	data, err := h.Read(14)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "sensor payload" {
		t.Errorf("Read %q, want %q", data, "sensor payload")
	}

	if _, err := h.Read(5000); err == nil {
		t.Errorf("Read past the region size must fail")
	}
}

// TestOpenNegotiationFails tests that a rejected negotiation leaves no
// mapping behind
func TestOpenNegotiationFails(t *testing.T) {
	conn := &fakeConn{callErr: &protocol.RemoteValueError{Reason: "no such sensor"}}
	name := regionName(t)

	if _, err := Open(context.Background(), conn, name, 4096); err == nil {
		t.Fatalf("Open must fail when the negotiation is rejected")
	}
	if _, err := os.Stat(filepath.Join("/dev/shm", name)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Rejected negotiation left a region file behind")
	}
}

// TestOpenInvalidSize tests that nonpositive sizes are rejected before
// any negotiation
func TestOpenInvalidSize(t *testing.T) {
	conn := &fakeConn{}

	if _, err := Open(context.Background(), conn, regionName(t), 0); err == nil {
		t.Errorf("Open with size 0 must fail")
	}
	if len(conn.calls) != 0 {
		t.Errorf("Invalid size must not reach the wire")
	}
}

// TestCloseIdempotent tests that Close unlinks the region, notifies the
// peer and tolerates being called again
func TestCloseIdempotent(t *testing.T) {
	conn := &fakeConn{}
	name := regionName(t)

	h, err := Open(context.Background(), conn, name, 1024)
	if err != nil {
		t.Fatalf("Failed to open shared memory: %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join("/dev/shm", name)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Close left the region file behind")
	}
	if len(conn.sends) != 1 || conn.sends[0].Kind() != protocol.KindCloseShmem {
		t.Errorf("Close must notify the peer once, got %+v", conn.sends)
	}

	if err := h.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
	if len(conn.sends) != 1 {
		t.Errorf("Second close notified the peer again")
	}

	if _, err := h.Read(1); err == nil {
		t.Errorf("Read after close must fail")
	}
}

// TestCloseAfterConnectionLoss tests that local cleanup does not depend
// on the connection
func TestCloseAfterConnectionLoss(t *testing.T) {
	conn := &fakeConn{}
	name := regionName(t)

	h, err := Open(context.Background(), conn, name, 1024)
	if err != nil {
		t.Fatalf("Failed to open shared memory: %v", err)
	}

	conn.sendErr = protocol.ErrConnectionLost

	if err := h.Close(); err != nil {
		t.Errorf("Close after connection loss failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join("/dev/shm", name)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Close after connection loss left the region file behind")
	}
}
