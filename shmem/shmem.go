package shmem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/simlink/simlink/protocol"
)

var log = logrus.WithField("component", "shmem")

// shmDir is where POSIX shared memory objects live on Linux.
const shmDir = "/dev/shm"

// Conn is the slice of the connection API the shared-memory channel
// needs: a blocking request for the open negotiation and a
// fire-and-forget send for the close notification.
type Conn interface {
	Call(ctx context.Context, msg protocol.Message, expect protocol.Kind) (protocol.Message, error)
	Send(msg protocol.Message) error
}

// Handle is one mapped shared-memory region negotiated with the
// simulator. The region's internal binary layout is sensor-specific
// and opaque to this layer; the simulator announces fresh data through
// the normal socket path and the reader then copies it out locally
// with no socket round trip.
type Handle struct {
	name string
	size int
	conn Conn

	file *os.File
	data []byte

	mu     sync.Mutex
	closed bool
}

// Open negotiates the named region over conn, then creates and maps it
// locally. The negotiation happens first so both sides agree on the
// name and size before any reader touches the mapping.
func Open(ctx context.Context, conn Conn, name string, size int) (*Handle, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shared memory region %q needs a positive size, got %d", name, size)
	}

	if _, err := conn.Call(ctx, protocol.NewOpenShmem(name, size), protocol.KindShmemOpened); err != nil {
		return nil, fmt.Errorf("negotiating shared memory %q: %w", name, err)
	}

	file, err := os.OpenFile(filepath.Join(shmDir, name), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating shared memory %q: %w", name, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("sizing shared memory %q: %w", name, err)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mapping shared memory %q: %w", name, err)
	}

	log.Debugf("Mapped shared memory %q (%d bytes)", name, size)
	return &Handle{
		name: name,
		size: size,
		conn: conn,
		file: file,
		data: data,
	}, nil
}

// Name returns the region's name as negotiated with the simulator.
func (h *Handle) Name() string {
	return h.name
}

// Size returns the region's byte size.
func (h *Handle) Size() int {
	return h.size
}

// Read copies out the first n bytes of the region. Callers read only
// after the simulator signalled new data for this handle over the
// socket path.
func (h *Handle) Read(n int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("shared memory %q is closed", h.name)
	}
	if n < 0 || n > h.size {
		return nil, fmt.Errorf("read of %d bytes exceeds shared memory %q size %d", n, h.name, h.size)
	}

	out := make([]byte, n)
	copy(out, h.data[:n])
	return out, nil
}

// Close unmaps and unlinks the region and notifies the simulator.
// Idempotent, and the local cleanup does not depend on the connection:
// a dead connection must not leave OS-level shared memory segments
// behind, so the close notification is best effort only.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if err := unix.Munmap(h.data); err != nil {
		log.Warnf("Cannot unmap shared memory %q: %v", h.name, err)
	}
	h.data = nil
	h.file.Close()
	os.Remove(filepath.Join(shmDir, h.name))

	if err := h.conn.Send(protocol.NewCloseShmem(h.name)); err != nil {
		log.Debugf("Peer not notified of shared memory close %q: %v", h.name, err)
	}

	log.Debugf("Closed shared memory %q", h.name)
	return nil
}
