package pipe

import (
	"fmt"
	"sync"
)

// ConnectionState represents the lifecycle phase of one endpoint.
type ConnectionState int

const (
	// StateCreated indicates the endpoint exists but has not connected
	// or started listening.
	StateCreated ConnectionState = iota
	// StateConnecting indicates a client connect is in flight.
	StateConnecting
	// StateListening indicates a server accept is in flight.
	StateListening
	// StateConnected indicates the endpoint is ready for I/O.
	StateConnected
	// StateDisconnected indicates the connection was deliberately severed.
	StateDisconnected
	// StateBroken indicates the remote party is gone; discovered lazily
	// through I/O, never entered by a local control operation.
	StateBroken
	// StateClosed indicates resources are released. Terminal.
	StateClosed
)

// String returns the string representation of the connection state.
func (s ConnectionState) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateConnecting:
		return "Connecting"
	case StateListening:
		return "Listening"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	case StateBroken:
		return "Broken"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// validTransitions enumerates the legal state changes. A failed connect or
// a cancelled accept returns to the state it started from so the operation
// can be retried; Disconnected may return to Listening only when re-accept
// is permitted.
var validTransitions = map[ConnectionState][]ConnectionState{
	StateCreated:      {StateConnecting, StateListening, StateClosed},
	StateConnecting:   {StateConnected, StateCreated, StateClosed},
	StateListening:    {StateConnected, StateCreated, StateDisconnected, StateClosed},
	StateConnected:    {StateDisconnected, StateBroken, StateClosed},
	StateDisconnected: {StateListening, StateClosed},
	StateBroken:       {StateClosed},
	StateClosed:       {},
}

// stateMachine guards the endpoint lifecycle. Transitions are validated
// strictly: an illegal transition is rejected, never logged-and-allowed.
type stateMachine struct {
	mu           sync.RWMutex
	current      ConnectionState
	lastErr      error
	onTransition func(old, new ConnectionState)
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateCreated}
}

// newStateMachineAt starts a machine in a non-initial state; used when
// wrapping an already-connected duplicated handle.
func newStateMachineAt(s ConnectionState) *stateMachine {
	return &stateMachine{current: s}
}

// setTransitionCallback registers a callback invoked after every
// successful transition. The callback runs outside the lock.
func (m *stateMachine) setTransitionCallback(cb func(old, new ConnectionState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = cb
}

func (m *stateMachine) transitionCallback() func(old, new ConnectionState) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onTransition
}

// State returns the current connection state.
func (m *stateMachine) State() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is checks whether the current state matches the given state.
func (m *stateMachine) Is(s ConnectionState) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current == s
}

// LastError returns the error recorded by the most recent failure, if any.
func (m *stateMachine) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *stateMachine) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

// transitionTo moves to newState after validating the transition.
func (m *stateMachine) transitionTo(newState ConnectionState) error {
	m.mu.Lock()
	old := m.current
	if !transitionAllowed(old, newState) {
		m.mu.Unlock()
		if old == StateClosed {
			return fmt.Errorf("%w: transition to %s", ErrDisposed, newState)
		}
		return fmt.Errorf("%w: transition %s -> %s", ErrInvalidOperation, old, newState)
	}
	m.current = newState
	if newState == StateConnected {
		m.lastErr = nil
	}
	cb := m.onTransition
	m.mu.Unlock()

	// Call the callback outside the lock to avoid deadlocks.
	if cb != nil {
		cb(old, newState)
	}
	return nil
}

// require fails unless the current state is one of want. Closed maps to
// ErrDisposed, anything else to ErrInvalidOperation, so a wrong-phase
// call is reported immediately and synchronously.
func (m *stateMachine) require(op string, want ...ConnectionState) error {
	m.mu.RLock()
	cur := m.current
	m.mu.RUnlock()
	for _, s := range want {
		if cur == s {
			return nil
		}
	}
	if cur == StateClosed {
		return fmt.Errorf("%s: %w", op, ErrDisposed)
	}
	return fmt.Errorf("%s: %w (state %s)", op, ErrInvalidOperation, cur)
}

func transitionAllowed(from, to ConnectionState) bool {
	for _, v := range validTransitions[from] {
		if v == to {
			return true
		}
	}
	return false
}
