package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simlink/simlink/protocol"
)

func TestPendingResolve(t *testing.T) {
	table := newPendingTable()
	ch := table.add(protocol.KindGameState)

	assert.False(t, table.resolve(protocol.KindSensorData, protocol.Message{"type": "SensorData"}),
		"a reply of another kind must not resolve the waiter")

	require.True(t, table.resolve(protocol.KindGameState, protocol.Message{"type": "GameState"}))
	res := <-ch
	require.NoError(t, res.err)
	assert.Equal(t, "GameState", res.msg.Type())

	assert.False(t, table.resolve(protocol.KindGameState, protocol.Message{"type": "GameState"}),
		"a resolved waiter must not be resolvable twice")
}

func TestPendingResolveError(t *testing.T) {
	table := newPendingTable()

	assert.False(t, table.resolveError(&protocol.RemoteError{Reason: "boom"}),
		"an error with nothing pending resolves nothing")

	ch := table.add(protocol.KindStepped)
	require.True(t, table.resolveError(&protocol.RemoteError{Reason: "boom"}))

	res := <-ch
	require.Error(t, res.err)
	var remoteErr *protocol.RemoteError
	require.ErrorAs(t, res.err, &remoteErr)
	assert.Equal(t, "boom", remoteErr.Reason)
}

func TestPendingFailAll(t *testing.T) {
	table := newPendingTable()
	first := table.add(protocol.KindGameState)
	second := table.add(protocol.KindSensorData)

	table.failAll(protocol.ErrConnectionLost)

	for _, ch := range []chan callResult{first, second} {
		res := <-ch
		assert.ErrorIs(t, res.err, protocol.ErrConnectionLost)
	}
}

func TestPendingRemove(t *testing.T) {
	table := newPendingTable()
	table.add(protocol.KindGameState)
	table.remove(protocol.KindGameState)

	assert.False(t, table.resolve(protocol.KindGameState, protocol.Message{"type": "GameState"}),
		"a removed waiter must not receive replies")
}
