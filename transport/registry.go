package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/simlink/simlink/protocol"
)

// Registry owns the primary control connection plus the per-vehicle
// connections spawned from it. Every vehicle channel has its own
// socket, correlation state and read loop, so vehicles can be polled
// simultaneously without blocking each other or the primary.
type Registry struct {
	cfg     protocol.Config
	primary *Conn

	vehicles *xsync.MapOf[string, *Conn]

	// handshakeMu serializes vehicle handshakes: the ready event does
	// not distinguish concurrent requests beyond the vehicle id, and
	// only one waiter per kind may be registered on the primary.
	handshakeMu sync.Mutex
}

// NewRegistry wraps an open primary connection. cfg supplies the host
// and socket tuning for the vehicle channels dialed later.
func NewRegistry(primary *Conn, cfg protocol.Config) *Registry {
	return &Registry{
		cfg:      cfg,
		primary:  primary,
		vehicles: xsync.NewMapOf[string, *Conn](),
	}
}

// Primary returns the control connection the registry was built from.
func (r *Registry) Primary() *Conn {
	return r.primary
}

// Connect obtains a dedicated connection for the given vehicle. The
// handshake runs on the primary connection: the simulator must first
// instruct the vehicle's own script context to open a listening port,
// so the port number arrives as an asynchronous ready event rather
// than an immediate reply. The new port then gets a fresh connection
// with its own version handshake.
//
// An already connected vehicle returns its existing channel.
func (r *Registry) Connect(ctx context.Context, vehicleID string) (*Conn, error) {
	if conn, ok := r.vehicles.Load(vehicleID); ok && conn.State() == StateOpen {
		return conn, nil
	}

	r.handshakeMu.Lock()
	defer r.handshakeMu.Unlock()

	// Re-check: another caller may have finished this handshake while
	// we waited for the lock.
	if conn, ok := r.vehicles.Load(vehicleID); ok && conn.State() == StateOpen {
		return conn, nil
	}

	w := r.primary.WaitFor(protocol.KindStartVehicleConnection)
	defer w.Cancel()

	if err := r.primary.Send(protocol.NewStartVehicleConnection(vehicleID)); err != nil {
		return nil, err
	}

	ready, err := w.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("vehicle %s handshake: %w", vehicleID, err)
	}
	if vid := ready.String("vid"); vid != vehicleID {
		return nil, fmt.Errorf("vehicle handshake answered for %q, requested %q", vid, vehicleID)
	}
	port, ok := ready.Int("result")
	if !ok {
		return nil, fmt.Errorf("vehicle %s handshake reply carries no port", vehicleID)
	}

	vcfg := r.cfg
	vcfg.Port = int(port)
	conn, err := Open(vcfg)
	if err != nil {
		return nil, fmt.Errorf("vehicle %s channel on port %d: %w", vehicleID, port, err)
	}

	r.vehicles.Store(vehicleID, conn)
	log.Infof("Vehicle %s connected on port %d", vehicleID, port)
	return conn, nil
}

// Vehicle returns the existing channel for the given vehicle, if any.
func (r *Registry) Vehicle(vehicleID string) (*Conn, bool) {
	return r.vehicles.Load(vehicleID)
}

// CloseVehicle closes one vehicle channel. Other vehicle channels and
// the primary connection are unaffected.
func (r *Registry) CloseVehicle(vehicleID string) error {
	if conn, ok := r.vehicles.LoadAndDelete(vehicleID); ok {
		return conn.Close()
	}
	return nil
}

// Close closes every vehicle channel and then the primary connection.
func (r *Registry) Close() error {
	r.vehicles.Range(func(vid string, conn *Conn) bool {
		conn.Close()
		r.vehicles.Delete(vid)
		return true
	})
	return r.primary.Close()
}
