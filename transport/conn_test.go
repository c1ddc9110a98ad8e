package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simlink/simlink/protocol"
	"github.com/simlink/simlink/transport"
	simtest "github.com/simlink/simlink/transport/testing"
)

// TestOpenHandshake tests that Open performs the version handshake and
// leaves an open connection behind
func TestOpenHandshake(t *testing.T) {
	srv := simtest.NewServer(t, nil)

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	if conn.State() != transport.StateOpen {
		t.Errorf("Connection state = %v, want open", conn.State())
	}
}

// TestOpenVersionMismatch tests that a simulator speaking a different
// protocol version is rejected during the handshake
func TestOpenVersionMismatch(t *testing.T) {
	srv := simtest.NewServer(t, nil)
	srv.SetVersion("v0.9")

	conn, err := transport.Open(srv.ClientConfig())
	if err == nil {
		conn.Close()
		t.Fatalf("Expected handshake to fail")
	}
	if !errors.Is(err, protocol.ErrVersionMismatch) {
		t.Errorf("Handshake yielded %v, want ErrVersionMismatch", err)
	}
}

// TestCallResolvesTypedResponse tests that a reply of the expected kind
// resolves the pending request
func TestCallResolvesTypedResponse(t *testing.T) {
	srv := simtest.NewServer(t, func(msg protocol.Message, reply func(protocol.Message)) {
		if msg.Kind() == protocol.KindGameStateRequest {
			reply(protocol.Message{"type": "GameState", "state": "menu"})
		}
	})

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	resp, err := conn.Call(context.Background(), protocol.NewGameStateRequest(), protocol.KindGameState)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.String("state") != "menu" {
		t.Errorf("state = %q, want %q", resp.String("state"), "menu")
	}
}

// TestCallRemoteError tests that a wire error response resolves the
// pending request as a typed error without killing the connection
func TestCallRemoteError(t *testing.T) {
	srv := simtest.NewServer(t, func(msg protocol.Message, reply func(protocol.Message)) {
		switch msg.Kind() {
		case protocol.KindControl:
			reply(protocol.Message{protocol.KeyValueError: "unknown vehicle"})
		case protocol.KindGameStateRequest:
			reply(protocol.Message{"type": "GameState", "state": "menu"})
		}
	})

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	_, err = conn.Call(context.Background(), protocol.NewControl(nil), protocol.KindControlled)
	var valueErr *protocol.RemoteValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("Call yielded %v, want RemoteValueError", err)
	}
	if valueErr.Reason != "unknown vehicle" {
		t.Errorf("Reason = %q, want %q", valueErr.Reason, "unknown vehicle")
	}

	// The connection must remain usable after a remote error
	if _, err := conn.Call(context.Background(), protocol.NewGameStateRequest(), protocol.KindGameState); err != nil {
		t.Errorf("Follow-up call failed: %v", err)
	}
}

// TestUnmatchedMessageDropped tests that a message nobody is waiting
// for is dropped without disturbing the read loop
func TestUnmatchedMessageDropped(t *testing.T) {
	srv := simtest.NewServer(t, func(msg protocol.Message, reply func(protocol.Message)) {
		if msg.Kind() == protocol.KindGameStateRequest {
			reply(protocol.Message{"type": "GameState", "state": "scenario"})
		}
	})

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	srv.Inject(t, protocol.Message{"type": "SomeFutureMessage", "payload": 42})

	// The loop must still dispatch replies after the drop
	resp, err := conn.Call(context.Background(), protocol.NewGameStateRequest(), protocol.KindGameState)
	if err != nil {
		t.Fatalf("Call after dropped message failed: %v", err)
	}
	if resp.String("state") != "scenario" {
		t.Errorf("state = %q, want %q", resp.String("state"), "scenario")
	}
}

// TestCallTimeout tests that a request whose reply never arrives fails
// with ErrTimeout once the context deadline passes
func TestCallTimeout(t *testing.T) {
	srv := simtest.NewServer(t, func(msg protocol.Message, reply func(protocol.Message)) {
		// never reply
	})

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = conn.Call(ctx, protocol.NewGameStateRequest(), protocol.KindGameState)
	if !errors.Is(err, protocol.ErrTimeout) {
		t.Errorf("Call yielded %v, want ErrTimeout", err)
	}
	if conn.State() != transport.StateOpen {
		t.Errorf("Connection state = %v after timeout, want open", conn.State())
	}
}

// TestConnectionLossFailsPending tests that a dying socket releases a
// suspended caller with ErrConnectionLost
func TestConnectionLossFailsPending(t *testing.T) {
	srv := simtest.NewServer(t, func(msg protocol.Message, reply func(protocol.Message)) {
		// never reply
	})

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Call(context.Background(), protocol.NewGameStateRequest(), protocol.KindGameState)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	srv.DropClients()

	select {
	case err := <-errCh:
		if !errors.Is(err, protocol.ErrConnectionLost) {
			t.Errorf("Call yielded %v, want ErrConnectionLost", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Call not released after connection loss")
	}
}

// TestCloseReleasesWaiters tests that Close releases a registered event
// waiter with ErrConnectionLost
func TestCloseReleasesWaiters(t *testing.T) {
	srv := simtest.NewServer(t, nil)

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}

	w := conn.WaitFor(protocol.KindMapLoaded)
	defer w.Cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := w.Wait(context.Background())
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	conn.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, protocol.ErrConnectionLost) {
			t.Errorf("Wait yielded %v, want ErrConnectionLost", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait not released by Close")
	}
}

// TestWaiterReceivesEvent tests that an injected asynchronous event
// reaches its registered waiter
func TestWaiterReceivesEvent(t *testing.T) {
	srv := simtest.NewServer(t, nil)

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	w := conn.WaitFor(protocol.KindScenarioStarted)
	defer w.Cancel()

	srv.Inject(t, protocol.Message{"type": "ScenarioStarted"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	event, err := w.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if event.Kind() != protocol.KindScenarioStarted {
		t.Errorf("Event kind = %v, want ScenarioStarted", event.Kind())
	}
}

// TestWaiterReceivesRemoteError tests that a wire error response with
// no pending request fails a registered event waiter instead of being
// dropped
func TestWaiterReceivesRemoteError(t *testing.T) {
	srv := simtest.NewServer(t, func(msg protocol.Message, reply func(protocol.Message)) {
		if msg.Kind() == protocol.KindStartVehicleConnection {
			reply(protocol.Message{protocol.KeyValueError: "unknown vehicle"})
		}
	})

	conn, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	w := conn.WaitFor(protocol.KindStartVehicleConnection)
	defer w.Cancel()

	if err := conn.Send(protocol.NewStartVehicleConnection("ghost")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = w.Wait(ctx)
	var valueErr *protocol.RemoteValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("Wait yielded %v, want RemoteValueError", err)
	}
	if errors.Is(err, protocol.ErrTimeout) {
		t.Errorf("Wait must fail on the error response, not burn the deadline")
	}
}

// TestIndependentConnections tests that a slow request on one
// connection does not delay another connection's traffic
func TestIndependentConnections(t *testing.T) {
	srv := simtest.NewServer(t, func(msg protocol.Message, reply func(protocol.Message)) {
		switch msg.Kind() {
		case protocol.KindSensorRequest:
			go func() {
				time.Sleep(300 * time.Millisecond)
				reply(protocol.Message{"type": "SensorData", "data": map[string]any{}})
			}()
		case protocol.KindGameStateRequest:
			reply(protocol.Message{"type": "GameState", "state": "scenario"})
		}
	})

	slow, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open first connection: %v", err)
	}
	defer slow.Close()

	fast, err := transport.Open(srv.ClientConfig())
	if err != nil {
		t.Fatalf("Failed to open second connection: %v", err)
	}
	defer fast.Close()

	slowDone := make(chan error, 1)
	go func() {
		_, err := slow.Call(context.Background(), protocol.NewSensorRequest(nil), protocol.KindSensorData)
		slowDone <- err
	}()

	start := time.Now()
	if _, err := fast.Call(context.Background(), protocol.NewGameStateRequest(), protocol.KindGameState); err != nil {
		t.Fatalf("Fast call failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Fast call took %v, must not wait for the slow connection", elapsed)
	}

	if err := <-slowDone; err != nil {
		t.Errorf("Slow call failed: %v", err)
	}
}
