package pipe

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/pipelink/pipelink-go/internal/pipename"
)

// endpoint holds the lifecycle and I/O plumbing shared by the server and
// client sides of a pipe.
type endpoint struct {
	ep      pipename.Endpoint
	role    string
	dir     Direction
	mode    TransmissionMode
	caps    Capabilities
	sm      *stateMachine
	logger  *zap.Logger
	metrics MetricsSink

	// configured buffer sizes, reported under BufferQueryConfigured
	cfgIn  int32
	cfgOut int32

	mu     sync.Mutex // guards handle and control operations
	handle *Handle
}

func newEndpoint(e *endpoint, role string, ep pipename.Endpoint, dir Direction, mode TransmissionMode, cfgIn, cfgOut int32, logger *zap.Logger, metrics MetricsSink) {
	*e = endpoint{
		ep:      ep,
		role:    role,
		dir:     dir,
		mode:    mode,
		caps:    PlatformCapabilities(),
		sm:      newStateMachine(),
		logger:  logger,
		metrics: metrics,
		cfgIn:   cfgIn,
		cfgOut:  cfgOut,
	}
	e.sm.setTransitionCallback(func(old, new ConnectionState) {
		e.logger.Debug("pipe state transition",
			zap.String("endpoint", e.ep.String()),
			zap.String("role", e.role),
			zap.Stringer("from", old),
			zap.Stringer("to", new))
		if e.metrics != nil {
			e.metrics.ObserveTransition(e.role, old.String(), new.String())
		}
	})
}

// resetStateTo replaces the state machine, preserving the transition
// callback; used when wrapping an already-connected duplicated handle.
func (e *endpoint) resetStateTo(s ConnectionState) {
	cb := e.sm.transitionCallback()
	e.sm = newStateMachineAt(s)
	e.sm.setTransitionCallback(cb)
}

// State returns the endpoint's current connection state.
func (e *endpoint) State() ConnectionState { return e.sm.State() }

// IsConnected reports whether the endpoint is ready for I/O.
func (e *endpoint) IsConnected() bool { return e.sm.Is(StateConnected) }

// Direction returns the endpoint's configured direction.
func (e *endpoint) Direction() Direction { return e.dir }

// Endpoint returns the resolved pipe identifier.
func (e *endpoint) Endpoint() pipename.Endpoint { return e.ep }

// TransmissionMode is queryable in any state before disposal.
func (e *endpoint) TransmissionMode() (TransmissionMode, error) {
	if e.sm.Is(StateClosed) {
		return 0, fmt.Errorf("transmission mode: %w", ErrDisposed)
	}
	return e.mode, nil
}

// MessageBoundary reports whether write boundaries are preserved on the
// wire: requires message mode and a platform that honors it.
func (e *endpoint) MessageBoundary() bool {
	return e.mode == ModeMessage && e.caps.MessageBoundaries
}

// InputBufferSize reports the receive buffer size. Zero before a
// connection exists; the connected answer follows the platform's
// buffer-query policy.
func (e *endpoint) InputBufferSize() int32 {
	in, _ := e.bufferSizes()
	return in
}

// OutputBufferSize reports the send buffer size, zero pre-connection.
func (e *endpoint) OutputBufferSize() int32 {
	_, out := e.bufferSizes()
	return out
}

func (e *endpoint) bufferSizes() (int32, int32) {
	if !e.sm.Is(StateConnected) {
		return 0, 0
	}
	if e.caps.BufferQuery == BufferQueryConfigured {
		return e.cfgIn, e.cfgOut
	}
	conn, err := e.connectedConn()
	if err != nil {
		return 0, 0
	}
	return socketBufferSizes(conn)
}

// RemoteIdentity reports the peer process identity. Valid only while
// connected; capability-gated per platform.
func (e *endpoint) RemoteIdentity() (Identity, error) {
	if err := e.sm.require("remote identity", StateConnected); err != nil {
		return Identity{}, err
	}
	if !e.caps.RemoteIdentity {
		return Identity{}, fmt.Errorf("remote identity: %w", ErrPlatformUnsupported)
	}
	conn, err := e.connectedConn()
	if err != nil {
		return Identity{}, fmt.Errorf("remote identity: %w", err)
	}
	return peerIdentity(conn)
}

// DuplicateHandle returns an independent Handle over the endpoint's
// connection, for constructing a cloned endpoint.
func (e *endpoint) DuplicateHandle() (*Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.sm.require("duplicate handle", StateConnected); err != nil {
		return nil, err
	}
	if e.handle == nil {
		return nil, fmt.Errorf("duplicate handle: %w", ErrDisposed)
	}
	return e.handle.Duplicate()
}

// CancelPending interrupts any pending read or write on the endpoint
// from outside the operation's own token.
func (e *endpoint) CancelPending() {
	if h := e.currentHandle(); h != nil {
		h.CancelPending()
	}
}

// Read transfers bytes from the pipe, blocking until data arrives.
func (e *endpoint) Read(p []byte) (int, error) {
	return e.read(context.Background(), false, p)
}

// ReadContext is Read with a caller-supplied cancellation token.
func (e *endpoint) ReadContext(ctx context.Context, p []byte) (int, error) {
	return e.read(ctx, true, p)
}

// Write transfers bytes to the pipe.
func (e *endpoint) Write(p []byte) (int, error) {
	return e.write(context.Background(), false, p)
}

// WriteContext is Write with a caller-supplied cancellation token.
func (e *endpoint) WriteContext(ctx context.Context, p []byte) (int, error) {
	return e.write(ctx, true, p)
}

// Flush exists for parity with buffered stream callers; pipe writes are
// not buffered by the engine.
func (e *endpoint) Flush() error {
	return e.sm.require("flush", StateConnected)
}

func (e *endpoint) read(ctx context.Context, hasToken bool, p []byte) (int, error) {
	if !e.dir.CanRead() {
		return 0, fmt.Errorf("read: %w: endpoint direction is %s", ErrInvalidOperation, e.dir)
	}
	switch e.sm.State() {
	case StateConnected:
	case StateBroken:
		return e.brokenRead()
	default:
		return 0, e.sm.require("read", StateConnected)
	}
	h := e.currentHandle()
	if h == nil {
		return 0, fmt.Errorf("read: %w", ErrDisposed)
	}
	h.armRead()
	var n int
	err := await(ctx, hasToken, readControl(h), func() error {
		var opErr error
		n, opErr = h.Read(p)
		return opErr
	})
	if err == nil {
		e.addBytes("read", n)
		return n, nil
	}
	if isTaxonomy(err) {
		return 0, fmt.Errorf("read: %w", err)
	}
	if isDisconnectError(err) {
		e.markBroken(err)
		if n > 0 {
			// Bytes delivered alongside the disconnect still belong to
			// the caller; the broken-pipe policy applies to the next read.
			e.addBytes("read", n)
			return n, nil
		}
		return e.brokenRead()
	}
	return n, opError("read", err)
}

func (e *endpoint) write(ctx context.Context, hasToken bool, p []byte) (int, error) {
	if !e.dir.CanWrite() {
		return 0, fmt.Errorf("write: %w: endpoint direction is %s", ErrInvalidOperation, e.dir)
	}
	switch e.sm.State() {
	case StateConnected:
	case StateBroken:
		return 0, fmt.Errorf("write: %w", ErrBrokenPipe)
	default:
		return 0, e.sm.require("write", StateConnected)
	}
	h := e.currentHandle()
	if h == nil {
		return 0, fmt.Errorf("write: %w", ErrDisposed)
	}
	h.armWrite()
	var n int
	err := await(ctx, hasToken, writeControl(h), func() error {
		var opErr error
		n, opErr = h.Write(p)
		return opErr
	})
	if err == nil {
		e.addBytes("write", n)
		return n, nil
	}
	if isTaxonomy(err) {
		return n, fmt.Errorf("write: %w", err)
	}
	if isDisconnectError(err) {
		e.markBroken(err)
		return n, fmt.Errorf("write: %w", ErrBrokenPipe)
	}
	return n, opError("write", err)
}

// brokenRead resolves what a read observes once the remote party is
// gone. Platforms that tear down the pipe eagerly surface a broken-pipe
// failure; platforms that detect disconnection lazily report a graceful
// end-of-stream as zero bytes.
func (e *endpoint) brokenRead() (int, error) {
	if e.caps.EagerDisconnect {
		return 0, fmt.Errorf("read: %w", ErrBrokenPipe)
	}
	return 0, nil
}

func (e *endpoint) markBroken(cause error) {
	e.sm.setError(cause)
	if err := e.sm.transitionTo(StateBroken); err == nil {
		e.logger.Debug("pipe broken",
			zap.String("endpoint", e.ep.String()),
			zap.String("role", e.role),
			zap.Error(cause))
	}
}

func (e *endpoint) currentHandle() *Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle
}

func (e *endpoint) connectedConn() (net.Conn, error) {
	h := e.currentHandle()
	if h == nil {
		return nil, ErrDisposed
	}
	return h.connection()
}

func (e *endpoint) addBytes(direction string, n int) {
	if e.metrics != nil && n > 0 {
		e.metrics.AddBytes(e.role, direction, n)
	}
}
