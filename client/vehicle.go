package client

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/simlink/simlink/protocol"
	"github.com/simlink/simlink/shmem"
	"github.com/simlink/simlink/transport"
)

// VehicleState is a snapshot of a vehicle's kinematic state as
// reported by its built-in state sensor.
type VehicleState struct {
	Position  [3]float64
	Velocity  [3]float64
	Direction [3]float64
}

// Control carries one frame of driving inputs. Analog inputs range
// from 0 to 1 except Steering, which ranges from -1 (full left) to 1
// (full right). Gear follows the simulator's convention of -1 for
// reverse, 0 for neutral and positive numbers for forward gears.
type Control struct {
	Throttle  float64
	Steering  float64
	Brake     float64
	ParkBrake float64
	Clutch    float64
	Gear      int
}

// Vehicle is the handle to one vehicle's dedicated connection.
// Operations on it run independently of the primary connection and of
// other vehicles; a long sensor poll on one vehicle never delays
// another.
type Vehicle struct {
	ID string

	conn     *transport.Conn
	registry *transport.Registry
	log      *logrus.Entry
}

// Conn exposes the vehicle's dedicated connection for raw protocol
// access.
func (v *Vehicle) Conn() *transport.Conn {
	return v.conn
}

// State polls the vehicle's kinematic state.
func (v *Vehicle) State(ctx context.Context) (*VehicleState, error) {
	data, err := v.PollSensors(ctx, map[string]any{
		"state": map[string]any{"type": "state"},
	})
	if err != nil {
		return nil, err
	}

	state := data.Map("state")
	if state == nil {
		return nil, fmt.Errorf("vehicle %q returned no state sensor data", v.ID)
	}

	var out VehicleState
	var ok bool
	if out.Position, ok = state.Floats3("pos"); !ok {
		return nil, fmt.Errorf("vehicle %q state has no position", v.ID)
	}
	out.Velocity, _ = state.Floats3("vel")
	out.Direction, _ = state.Floats3("dir")
	return &out, nil
}

// Apply sends one frame of driving inputs and waits for the vehicle's
// acknowledgement.
func (v *Vehicle) Apply(ctx context.Context, in Control) error {
	_, err := v.conn.Call(ctx, protocol.NewControl(map[string]any{
		"throttle":     in.Throttle,
		"steering":     in.Steering,
		"brake":        in.Brake,
		"parkingbrake": in.ParkBrake,
		"clutch":       in.Clutch,
		"gear":         in.Gear,
	}), protocol.KindControlled)
	if err != nil {
		return fmt.Errorf("applying control to vehicle %q: %w", v.ID, err)
	}
	return nil
}

// PollSensors requests one reading from the named sensors. The
// requests map is keyed by sensor name; each value describes what that
// sensor should deliver and is passed through untouched. The reply
// maps the same names to their readings.
func (v *Vehicle) PollSensors(ctx context.Context, requests map[string]any) (protocol.Message, error) {
	resp, err := v.conn.Call(ctx, protocol.NewSensorRequest(requests), protocol.KindSensorData)
	if err != nil {
		return nil, fmt.Errorf("polling sensors on vehicle %q: %w", v.ID, err)
	}
	data := resp.Map("data")
	if data == nil {
		return resp, nil
	}
	return data, nil
}

// OpenSharedMemory negotiates a shared-memory region on the vehicle's
// connection for high-bandwidth sensor payloads such as camera frames.
func (v *Vehicle) OpenSharedMemory(ctx context.Context, name string, size int) (*shmem.Handle, error) {
	return shmem.Open(ctx, v.conn, name, size)
}

// Close disconnects the vehicle's dedicated channel. Pending calls on
// it fail with ErrConnectionLost; the primary connection and other
// vehicles are unaffected.
func (v *Vehicle) Close() error {
	v.log.Info("Closing vehicle channel")
	return v.registry.CloseVehicle(v.ID)
}
