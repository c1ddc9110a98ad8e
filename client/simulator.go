package client

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/simlink/simlink/protocol"
	"github.com/simlink/simlink/transport"
)

var log = logrus.WithField("component", "client")

// eventBuffer bounds the unsolicited-event channel. The read loop must
// never block on a slow consumer, so overflow drops the newest event.
const eventBuffer = 64

// Simulator is the high-level handle to one running simulator
// instance. It wraps the primary control connection, coordinates
// blocking operations, and hands out per-vehicle channels.
type Simulator struct {
	cfg      protocol.Config
	registry *transport.Registry
	coord    *coordinator
	events   chan protocol.Message
	log      *logrus.Entry
}

// Connect opens the primary control connection described by cfg and
// completes the version handshake. Dialing is bounded by the
// configured dial timeout and retry count, not by a context.
func Connect(cfg protocol.Config) (*Simulator, error) {
	conn, err := transport.Open(cfg)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:      cfg,
		registry: transport.NewRegistry(conn, cfg),
		coord:    newCoordinator(conn, log),
		events:   make(chan protocol.Message, eventBuffer),
		log:      log.WithField("addr", cfg.Addr()),
	}

	conn.SetHandler(s.onEvent)
	s.log.Info("Connected to simulator")
	return s, nil
}

// onEvent runs on the read loop goroutine for messages nothing else
// claimed: pass-through extension messages and events no operation is
// waiting for.
func (s *Simulator) onEvent(msg protocol.Message) {
	select {
	case s.events <- msg:
	default:
		s.log.Warnf("Event buffer full, dropping %q", msg.Type())
	}
}

// Events returns the stream of unsolicited messages from the
// simulator. The channel is never closed; stop reading it after Close.
func (s *Simulator) Events() <-chan protocol.Message {
	return s.events
}

// Conn exposes the primary connection for callers that need raw
// protocol access, such as extension messages with no built-in
// wrapper.
func (s *Simulator) Conn() *transport.Conn {
	return s.registry.Primary()
}

// Close shuts down every vehicle channel and the primary connection.
// Suspended callers are released with ErrConnectionLost.
func (s *Simulator) Close() error {
	return s.registry.Close()
}

// --------------------------------------------------------------------------
// Blocking Operations
// --------------------------------------------------------------------------

// LoadScenario asks the simulator to load the scenario definition at
// the given simulator-side path and blocks until the map has finished
// loading, which the simulator signals with an asynchronous MapLoaded
// event once its loading screen is gone.
func (s *Simulator) LoadScenario(ctx context.Context, path string) error {
	_, err := s.coord.run(ctx, protocol.NewLoadScenario(path), protocol.KindMapLoaded)
	return err
}

// StartScenario starts the loaded scenario and blocks until the
// start countdown has finished.
func (s *Simulator) StartScenario(ctx context.Context) error {
	_, err := s.coord.run(ctx, protocol.NewStartScenario(), protocol.KindScenarioStarted)
	return err
}

// RestartScenario restarts the running scenario and blocks until it is
// back at its starting state.
func (s *Simulator) RestartScenario(ctx context.Context) error {
	_, err := s.coord.run(ctx, protocol.NewRestartScenario(), protocol.KindScenarioRestarted)
	return err
}

// StopScenario ends the running scenario and returns the simulator to
// its main menu.
func (s *Simulator) StopScenario(ctx context.Context) error {
	_, err := s.coord.run(ctx, protocol.NewStopScenario(), protocol.KindScenarioStopped)
	return err
}

// Step advances the simulation by count physics ticks and blocks until
// the simulator has consumed them. If the wait times out, how many
// ticks actually ran is unknown.
func (s *Simulator) Step(ctx context.Context, count int) error {
	_, err := s.coord.run(ctx, protocol.NewStep(count), protocol.KindStepped)
	return err
}

// Pause halts the simulation and blocks until it stands still.
func (s *Simulator) Pause(ctx context.Context) error {
	_, err := s.coord.run(ctx, protocol.NewPause(), protocol.KindPaused)
	return err
}

// Resume continues a paused simulation and blocks until it runs again.
func (s *Simulator) Resume(ctx context.Context) error {
	_, err := s.coord.run(ctx, protocol.NewResume(), protocol.KindResumed)
	return err
}

// Quit asks the simulator process to shut down and waits for its
// goodbye. The connection dies right after; callers should Close.
func (s *Simulator) Quit(ctx context.Context) error {
	_, err := s.coord.run(ctx, protocol.NewQuit(), protocol.KindQuit)
	return err
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// GameState reports the simulator's current state, such as whether it
// sits in the menu or inside a running scenario.
func (s *Simulator) GameState(ctx context.Context) (protocol.Message, error) {
	return s.Conn().Call(ctx, protocol.NewGameStateRequest(), protocol.KindGameState)
}

// QueueLuaCommand runs a lua chunk in the simulator's game engine
// context. With wantResponse the chunk's result is returned.
func (s *Simulator) QueueLuaCommand(ctx context.Context, chunk string, wantResponse bool) (any, error) {
	resp, err := s.Conn().Call(ctx, protocol.NewQueueLuaCommand(chunk, wantResponse), protocol.KindExecutedLuaChunk)
	if err != nil {
		return nil, err
	}
	return resp["resp"], nil
}

// Levels queries the levels installed in the simulator. The reply's
// result field is passed through undecoded; its layout belongs to the
// scenario tooling, not this layer.
func (s *Simulator) Levels(ctx context.Context) (any, error) {
	resp, err := s.Conn().Call(ctx, protocol.NewGetLevels(), protocol.KindGetLevels)
	if err != nil {
		return nil, err
	}
	return resp["result"], nil
}

// Scenarios queries the scenarios available for the given levels, or
// all levels when none are named. Pass-through like Levels.
func (s *Simulator) Scenarios(ctx context.Context, levels ...string) (any, error) {
	resp, err := s.Conn().Call(ctx, protocol.NewGetScenarios(levels), protocol.KindGetScenarios)
	if err != nil {
		return nil, err
	}
	return resp["result"], nil
}

// HideHUD hides the in-game HUD. Fire-and-forget.
func (s *Simulator) HideHUD() error {
	return s.Conn().Send(protocol.NewHideHUD())
}

// ShowHUD shows the in-game HUD. Fire-and-forget.
func (s *Simulator) ShowHUD() error {
	return s.Conn().Send(protocol.NewShowHUD())
}

// --------------------------------------------------------------------------
// Vehicles
// --------------------------------------------------------------------------

// Vehicle connects the named vehicle's dedicated channel and returns a
// handle for it. The handshake takes simulator-side time: the vehicle's
// script context must open a listening port before the client can dial
// it.
func (s *Simulator) Vehicle(ctx context.Context, vehicleID string) (*Vehicle, error) {
	conn, err := s.registry.Connect(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return &Vehicle{
		ID:       vehicleID,
		conn:     conn,
		registry: s.registry,
		log:      s.log.WithField("vehicle", vehicleID),
	}, nil
}
