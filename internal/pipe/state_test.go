package pipe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConnectionState_String tests the string representation of connection states
func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state    ConnectionState
		expected string
	}{
		{StateCreated, "Created"},
		{StateConnecting, "Connecting"},
		{StateListening, "Listening"},
		{StateConnected, "Connected"},
		{StateDisconnected, "Disconnected"},
		{StateBroken, "Broken"},
		{StateClosed, "Closed"},
		{ConnectionState(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

// TestStateMachine_LegalTransitions tests every transition the lifecycle permits
func TestStateMachine_LegalTransitions(t *testing.T) {
	tests := []struct {
		from ConnectionState
		to   ConnectionState
	}{
		{StateCreated, StateConnecting},
		{StateCreated, StateListening},
		{StateCreated, StateClosed},
		{StateConnecting, StateConnected},
		{StateConnecting, StateCreated},
		{StateConnecting, StateClosed},
		{StateListening, StateConnected},
		{StateListening, StateCreated},
		{StateListening, StateDisconnected},
		{StateListening, StateClosed},
		{StateConnected, StateDisconnected},
		{StateConnected, StateBroken},
		{StateConnected, StateClosed},
		{StateDisconnected, StateListening},
		{StateDisconnected, StateClosed},
		{StateBroken, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_to_"+tt.to.String(), func(t *testing.T) {
			sm := newStateMachineAt(tt.from)
			require.NoError(t, sm.transitionTo(tt.to))
			assert.Equal(t, tt.to, sm.State())
		})
	}
}

// TestStateMachine_IllegalTransitions tests that out-of-order transitions are rejected
func TestStateMachine_IllegalTransitions(t *testing.T) {
	tests := []struct {
		from ConnectionState
		to   ConnectionState
	}{
		{StateCreated, StateConnected},
		{StateCreated, StateDisconnected},
		{StateCreated, StateBroken},
		{StateConnecting, StateListening},
		{StateListening, StateConnecting},
		{StateConnected, StateCreated},
		{StateConnected, StateListening},
		{StateConnected, StateConnecting},
		{StateDisconnected, StateConnected},
		{StateDisconnected, StateCreated},
		{StateDisconnected, StateBroken},
		{StateBroken, StateConnected},
		{StateBroken, StateListening},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_to_"+tt.to.String(), func(t *testing.T) {
			sm := newStateMachineAt(tt.from)
			err := sm.transitionTo(tt.to)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOperation)
			// A rejected transition leaves the state untouched.
			assert.Equal(t, tt.from, sm.State())
		})
	}
}

// TestStateMachine_ClosedIsTerminal tests that nothing leaves Closed
func TestStateMachine_ClosedIsTerminal(t *testing.T) {
	for _, to := range []ConnectionState{
		StateCreated, StateConnecting, StateListening,
		StateConnected, StateDisconnected, StateBroken,
	} {
		sm := newStateMachineAt(StateClosed)
		err := sm.transitionTo(to)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDisposed, "transition out of Closed to %s", to)
		assert.Equal(t, StateClosed, sm.State())
	}
}

// TestStateMachine_TransitionCallback tests that the callback observes old and new state
func TestStateMachine_TransitionCallback(t *testing.T) {
	sm := newStateMachine()

	var gotOld, gotNew ConnectionState
	var calls int
	sm.setTransitionCallback(func(old, new ConnectionState) {
		calls++
		gotOld, gotNew = old, new
	})

	require.NoError(t, sm.transitionTo(StateListening))
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateCreated, gotOld)
	assert.Equal(t, StateListening, gotNew)

	// A rejected transition must not fire the callback.
	require.Error(t, sm.transitionTo(StateBroken))
	assert.Equal(t, 1, calls)
}

// TestStateMachine_Require tests wrong-phase error mapping
func TestStateMachine_Require(t *testing.T) {
	sm := newStateMachine()
	assert.NoError(t, sm.require("op", StateCreated))
	assert.NoError(t, sm.require("op", StateConnected, StateCreated))

	err := sm.require("read", StateConnected)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Contains(t, err.Error(), "read")

	closed := newStateMachineAt(StateClosed)
	err = closed.require("read", StateConnected)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisposed)
	assert.False(t, errors.Is(err, ErrInvalidOperation))
}

// TestStateMachine_LastError tests that the recorded failure is cleared on connect
func TestStateMachine_LastError(t *testing.T) {
	sm := newStateMachineAt(StateConnecting)
	assert.NoError(t, sm.LastError())

	cause := errors.New("dial refused")
	sm.setError(cause)
	assert.ErrorIs(t, sm.LastError(), cause)

	require.NoError(t, sm.transitionTo(StateConnected))
	assert.NoError(t, sm.LastError())
}
