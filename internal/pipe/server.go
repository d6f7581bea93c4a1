package pipe

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/pipelink/pipelink-go/internal/pipename"
)

// Server is the listening side of a named pipe. One Server accepts at
// most MaxInstances clients over its lifetime (default one).
type Server struct {
	endpoint
	opts          *ServerOptions
	ln            net.Listener
	allowReaccept bool

	// accepted, pending and accepting are guarded by endpoint.mu.
	// accepting marks an Accept call parked on the pending channel, so
	// Close knows the result already has a consumer and must not drain
	// it a second time.
	accepted  int
	pending   chan acceptResult
	accepting bool
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// NewServer resolves the endpoint, creates the OS listener and returns a
// server in the Created state.
func NewServer(endpoint string, opts *ServerOptions) (*Server, error) {
	o, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	ep, err := pipename.Resolve(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	ln, err := listenPipe(ep, o)
	if err != nil {
		return nil, opError("listen", err)
	}
	s := &Server{
		opts: o,
		ln:   ln,
	}
	newEndpoint(&s.endpoint, "server", ep, o.Direction, o.Mode, o.InputBufferSize, o.OutputBufferSize, o.Logger, o.Metrics)
	s.allowReaccept = s.caps.ReacceptAfterDisconnect
	if o.AllowReaccept != nil {
		s.allowReaccept = *o.AllowReaccept
	}
	o.Logger.Debug("pipe server listening",
		zap.String("endpoint", ep.String()),
		zap.Stringer("direction", o.Direction),
		zap.Stringer("mode", o.Mode),
		zap.Int("max_instances", o.MaxInstances))
	return s, nil
}

// ServerFromHandle wraps an already-duplicated Handle as an independent,
// connected server endpoint. The new endpoint shares the underlying OS
// resource with the Handle's origin but is separately drivable:
// disconnecting or disposing it does not change the origin's state.
func ServerFromHandle(h *Handle, opts *ServerOptions) (*Server, error) {
	o, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	if h == nil || !h.Valid() {
		return nil, fmt.Errorf("server from handle: %w", ErrDisposed)
	}
	s := &Server{opts: o}
	newEndpoint(&s.endpoint, "server", pipename.Endpoint{}, o.Direction, o.Mode, o.InputBufferSize, o.OutputBufferSize, o.Logger, o.Metrics)
	s.endpoint.resetStateTo(StateConnected)
	s.handle = h
	s.accepted = o.MaxInstances // a cloned endpoint cannot accept
	return s, nil
}

// Clone duplicates the server's handle into a second, independently
// drivable server endpoint over the same OS resource.
func (s *Server) Clone() (*Server, error) {
	h, err := s.DuplicateHandle()
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	clone, err := ServerFromHandle(h, s.opts)
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("clone: %w", err)
	}
	clone.ep = s.ep
	return clone, nil
}

// Accept blocks until a client connects.
func (s *Server) Accept() error {
	return s.accept(context.Background(), false)
}

// AcceptContext blocks until a client connects or the context is done.
// A cancelled accept leaves the endpoint able to accept again.
func (s *Server) AcceptContext(ctx context.Context) error {
	return s.accept(ctx, true)
}

func (s *Server) accept(ctx context.Context, hasToken bool) error {
	if hasToken {
		// An already-cancelled token completes immediately without
		// starting the platform wait.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("accept: %w: %w", ErrCanceled, err)
		}
	}

	s.mu.Lock()
	origin := s.sm.State()
	switch origin {
	case StateCreated:
	case StateDisconnected:
		if !s.allowReaccept {
			s.mu.Unlock()
			return fmt.Errorf("accept: %w: endpoint is disconnected", ErrInvalidOperation)
		}
	case StateBroken:
		// The previously connected client handle went away before this
		// accept. How that is reported diverges by platform.
		s.mu.Unlock()
		if s.caps.StaleHandleAcceptIO {
			return fmt.Errorf("accept: %w", ErrBrokenPipe)
		}
		return fmt.Errorf("accept: %w: previous connection lost", ErrInvalidOperation)
	case StateClosed:
		s.mu.Unlock()
		return fmt.Errorf("accept: %w", ErrDisposed)
	default:
		s.mu.Unlock()
		return fmt.Errorf("accept: %w (state %s)", ErrInvalidOperation, origin)
	}
	if s.accepted >= s.opts.MaxInstances {
		s.mu.Unlock()
		return fmt.Errorf("accept: %w: max instances (%d) exhausted", ErrInvalidOperation, s.opts.MaxInstances)
	}
	if err := s.sm.transitionTo(StateListening); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("accept: %w", err)
	}
	if s.pending == nil {
		// The wait survives cancellation: an abandoned accept keeps
		// running and its result is consumed by the next Accept call.
		ch := make(chan acceptResult, 1)
		ln := s.ln
		go func() {
			conn, err := ln.Accept()
			ch <- acceptResult{conn: conn, err: err}
		}()
		s.pending = ch
	}
	pending := s.pending
	s.accepting = true
	s.mu.Unlock()

	var res acceptResult
	if hasToken {
		select {
		case res = <-pending:
		case <-ctx.Done():
			s.mu.Lock()
			s.accepting = false
			if s.sm.Is(StateClosed) {
				// Close ran while this accept was parked and left the
				// drain to us; the abandoned result must still be
				// consumed and released.
				s.drainPending()
			} else {
				_ = s.sm.transitionTo(origin)
			}
			s.mu.Unlock()
			return fmt.Errorf("accept: %w: %w", ErrCanceled, context.Cause(ctx))
		}
	} else {
		res = <-pending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepting = false
	s.pending = nil
	if res.err != nil {
		if s.sm.Is(StateClosed) {
			return fmt.Errorf("accept: %w", ErrDisposed)
		}
		_ = s.sm.transitionTo(origin)
		if listenerClosed(res.err) {
			// The wait was broken from outside, not by our token.
			if hasToken {
				return fmt.Errorf("accept: %w: listener closed", ErrIO)
			}
			return fmt.Errorf("accept: %w", ErrCanceled)
		}
		return opError("accept", res.err)
	}
	if s.sm.Is(StateClosed) {
		_ = res.conn.Close()
		return fmt.Errorf("accept: %w", ErrDisposed)
	}
	tuneConn(res.conn, s.opts)
	s.handle = newHandle(res.conn)
	s.accepted++
	if err := s.sm.transitionTo(StateConnected); err != nil {
		_ = s.handle.Close()
		s.handle = nil
		return fmt.Errorf("accept: %w", err)
	}
	s.opts.Logger.Debug("pipe server accepted client", zap.String("endpoint", s.ep.String()))
	return nil
}

// Disconnect deliberately severs the current connection. Requires
// Connected; a second Disconnect fails with ErrInvalidOperation.
func (s *Server) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sm.require("disconnect", StateConnected); err != nil {
		return err
	}
	if err := s.sm.transitionTo(StateDisconnected); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if s.handle != nil {
		_ = s.handle.Close()
		s.handle = nil
	}
	return nil
}

// Close releases the endpoint's resources from any state. A second Close
// fails with ErrDisposed.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sm.Is(StateClosed) {
		return fmt.Errorf("close: %w", ErrDisposed)
	}
	_ = s.sm.transitionTo(StateClosed)
	if s.handle != nil {
		_ = s.handle.Close()
		s.handle = nil
	}
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	if !s.accepting {
		// Only drain when no Accept call is parked on the channel: a
		// parked Accept consumes the result itself (and sees ErrDisposed);
		// a second receiver here would either steal its result or leak.
		s.drainPending()
	}
	return err
}

// drainPending consumes the abandoned accept result, releasing any
// connection it raced in. The listener close unblocks the wait, so the
// drain goroutine always terminates. Caller holds s.mu.
func (s *Server) drainPending() {
	if s.pending == nil {
		return
	}
	go func(ch chan acceptResult) {
		if res := <-ch; res.conn != nil {
			_ = res.conn.Close()
		}
	}(s.pending)
	s.pending = nil
}
