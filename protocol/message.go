package protocol

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single decoded wire message: a mapping of field
// names to values (numbers, strings, booleans, nested maps/slices and
// binary blobs). Every structured message except wire-level error
// responses carries a "type" field used for dispatch.
type Message map[string]any

// Type returns the value of the "type" field, or "" if the message has
// none (raw acknowledgements and wire error responses).
func (m Message) Type() string {
	s, _ := m["type"].(string)
	return s
}

// Kind returns the message kind derived from the "type" field.
// Messages with an unrecognized type map to KindUnknown.
func (m Message) Kind() Kind {
	return KindOf(m.Type())
}

// String returns the string value of the given field. Binary fields
// are converted, everything else yields "".
func (m Message) String(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Int returns the integer value of the given field, coercing from any
// numeric representation the payload decoder may produce.
func (m Message) Int(key string) (int64, bool) {
	return toInt64(m[key])
}

// Float returns the float value of the given field, coercing from any
// numeric representation the payload decoder may produce.
func (m Message) Float(key string) (float64, bool) {
	return toFloat64(m[key])
}

// Bool returns the boolean value of the given field.
func (m Message) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Map returns the nested map value of the given field, or nil.
func (m Message) Map(key string) Message {
	switch v := m[key].(type) {
	case Message:
		return v
	case map[string]any:
		return Message(v)
	}
	return nil
}

// Floats3 returns a three-component vector field (position, velocity,
// direction) as an array.
func (m Message) Floats3(key string) ([3]float64, bool) {
	seq, ok := m[key].([]any)
	if !ok || len(seq) != 3 {
		return [3]float64{}, false
	}
	var out [3]float64
	for i, v := range seq {
		f, ok := toFloat64(v)
		if !ok {
			return [3]float64{}, false
		}
		out[i] = f
	}
	return out, true
}

// WireError returns the error carried by a wire-level error response
// (a message keyed by "bngError" or "bngValueError" instead of "type"),
// or nil if the message is not an error response.
func (m Message) WireError() error {
	if v, ok := m[KeyValueError]; ok {
		return &RemoteValueError{Reason: stringify(v)}
	}
	if v, ok := m[KeyError]; ok {
		return &RemoteError{Reason: stringify(v)}
	}
	return nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewHello creates the version handshake request sent as the first
// message on every new connection.
func NewHello(version string) Message {
	return Message{"type": "Hello", "protocolVersion": version}
}

// NewStartVehicleConnection creates the request that asks the simulator
// to open a dedicated listening port for the given vehicle.
func NewStartVehicleConnection(vehicleID string) Message {
	return Message{"type": "StartVehicleConnection", "vid": vehicleID}
}

// NewLoadScenario creates a LoadScenario request for the scenario
// definition at the given simulator-side path.
func NewLoadScenario(path string) Message {
	return Message{"type": "LoadScenario", "path": path}
}

// NewStartScenario creates a StartScenario request.
func NewStartScenario() Message {
	return Message{"type": "StartScenario"}
}

// NewRestartScenario creates a RestartScenario request.
func NewRestartScenario() Message {
	return Message{"type": "RestartScenario"}
}

// NewStopScenario creates a StopScenario request (return to main menu).
func NewStopScenario() Message {
	return Message{"type": "StopScenario"}
}

// NewStep creates a request to advance the simulation by count physics
// ticks.
func NewStep(count int) Message {
	return Message{"type": "Step", "count": count}
}

// NewPause creates a Pause request.
func NewPause() Message {
	return Message{"type": "Pause"}
}

// NewResume creates a Resume request.
func NewResume() Message {
	return Message{"type": "Resume"}
}

// NewQuit creates a Quit request, asking the simulator process to shut
// down.
func NewQuit() Message {
	return Message{"type": "Quit"}
}

// NewGameStateRequest creates a query for the simulator's current menu
// or scenario state.
func NewGameStateRequest() Message {
	return Message{"type": "GameStateRequest"}
}

// NewQueueLuaCommand creates a request to run a lua chunk in the
// simulator's game engine context.
func NewQueueLuaCommand(chunk string, wantResponse bool) Message {
	return Message{"type": "QueueLuaCommandGE", "chunk": chunk, "resp": wantResponse}
}

// NewGetLevels creates a query for the levels available in the
// simulator.
func NewGetLevels() Message {
	return Message{"type": "GetLevels"}
}

// NewGetScenarios creates a query for the scenarios available for the
// given levels. A nil or empty slice queries all levels.
func NewGetScenarios(levels []string) Message {
	m := Message{"type": "GetScenarios"}
	if len(levels) > 0 {
		m["levels"] = levels
	}
	return m
}

// NewHideHUD creates a fire-and-forget request to hide the in-game HUD.
func NewHideHUD() Message {
	return Message{"type": "HideHUD"}
}

// NewShowHUD creates a fire-and-forget request to show the in-game HUD.
func NewShowHUD() Message {
	return Message{"type": "ShowHUD"}
}

// NewControl creates a driving-input request for a vehicle channel.
func NewControl(inputs map[string]any) Message {
	m := Message{"type": "Control"}
	for k, v := range inputs {
		m[k] = v
	}
	return m
}

// NewSensorRequest creates a sensor polling request. The requests map
// is keyed by sensor name; its per-sensor contents are opaque to this
// layer.
func NewSensorRequest(requests map[string]any) Message {
	return Message{"type": "SensorRequest", "sensors": requests}
}

// NewOpenShmem creates a request asking the peer to map the named
// shared-memory region of the given byte size.
func NewOpenShmem(name string, size int) Message {
	return Message{"type": "OpenShmem", "name": name, "size": size}
}

// NewCloseShmem creates a request asking the peer to unmap the named
// shared-memory region.
func NewCloseShmem(name string) Message {
	return Message{"type": "CloseShmem", "name": name}
}

// --------------------------------------------------------------------------
// Message Kind Definition
// --------------------------------------------------------------------------

// Kind enumerates the message types known to this client. Inbound
// dispatch switches over Kind instead of the raw type string; messages
// the client does not know about become KindUnknown and are passed
// through to extension handlers untouched.
type Kind uint8

const (
	KindUnknown Kind = iota

	// Handshake and connection management

	KindHello
	KindStartVehicleConnection

	// Scenario lifecycle requests and their completion events

	KindLoadScenario
	KindMapLoaded
	KindStartScenario
	KindScenarioStarted
	KindRestartScenario
	KindScenarioRestarted
	KindStopScenario
	KindScenarioStopped

	// Simulation control

	KindStep
	KindStepped
	KindPause
	KindPaused
	KindResume
	KindResumed
	KindQuit

	// Queries and pass-through operations

	KindGameStateRequest
	KindGameState
	KindQueueLuaCommand
	KindExecutedLuaChunk
	KindGetLevels
	KindGetScenarios
	KindHideHUD
	KindShowHUD

	// Vehicle channel operations

	KindControl
	KindControlled
	KindSensorRequest
	KindSensorData

	// Shared memory negotiation

	KindOpenShmem
	KindShmemOpened
	KindCloseShmem
	KindShmemClosed
)

// kindNames maps each Kind to its wire type string. Kept as a table so
// String and KindOf cannot drift apart.
var kindNames = map[Kind]string{
	KindHello:                  "Hello",
	KindStartVehicleConnection: "StartVehicleConnection",
	KindLoadScenario:           "LoadScenario",
	KindMapLoaded:              "MapLoaded",
	KindStartScenario:          "StartScenario",
	KindScenarioStarted:        "ScenarioStarted",
	KindRestartScenario:        "RestartScenario",
	KindScenarioRestarted:      "ScenarioRestarted",
	KindStopScenario:           "StopScenario",
	KindScenarioStopped:        "ScenarioStopped",
	KindStep:                   "Step",
	KindStepped:                "Stepped",
	KindPause:                  "Pause",
	KindPaused:                 "Paused",
	KindResume:                 "Resume",
	KindResumed:                "Resumed",
	KindQuit:                   "Quit",
	KindGameStateRequest:       "GameStateRequest",
	KindGameState:              "GameState",
	KindQueueLuaCommand:        "QueueLuaCommandGE",
	KindExecutedLuaChunk:       "ExecutedLuaChunkGE",
	KindGetLevels:              "GetLevels",
	KindGetScenarios:           "GetScenarios",
	KindHideHUD:                "HideHUD",
	KindShowHUD:                "ShowHUD",
	KindControl:                "Control",
	KindControlled:             "Controlled",
	KindSensorRequest:          "SensorRequest",
	KindSensorData:             "SensorData",
	KindOpenShmem:              "OpenShmem",
	KindShmemOpened:            "ShmemOpened",
	KindCloseShmem:             "CloseShmem",
	KindShmemClosed:            "ShmemClosed",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the wire type string of a Kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf maps a wire type string to its Kind, or KindUnknown.
func KindOf(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindUnknown
}
