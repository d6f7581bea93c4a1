package pipe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/pipelink/pipelink-go/internal/pipename"
)

// Client is the connecting side of a named pipe. There is no explicit
// client-side disconnect: once the server severs the connection the
// client observes it through I/O, per the platform's disconnect policy.
type Client struct {
	endpoint
	opts *ClientOptions
}

// NewClient resolves the endpoint and returns a client in the Created
// state. No OS resources are acquired until Connect.
func NewClient(endpoint string, opts *ClientOptions) (*Client, error) {
	o, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	ep, err := pipename.Resolve(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	c := &Client{opts: o}
	newEndpoint(&c.endpoint, "client", ep, o.Direction, o.Mode, 0, 0, o.Logger, o.Metrics)
	return c, nil
}

// ClientFromHandle wraps an already-duplicated Handle as an independent,
// connected client endpoint over the same OS resource.
func ClientFromHandle(h *Handle, opts *ClientOptions) (*Client, error) {
	o, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	if h == nil || !h.Valid() {
		return nil, fmt.Errorf("client from handle: %w", ErrDisposed)
	}
	c := &Client{opts: o}
	newEndpoint(&c.endpoint, "client", pipename.Endpoint{}, o.Direction, o.Mode, 0, 0, o.Logger, o.Metrics)
	c.endpoint.resetStateTo(StateConnected)
	c.handle = h
	return c, nil
}

// Clone duplicates the client's handle into a second, independently
// drivable client endpoint over the same OS resource.
func (c *Client) Clone() (*Client, error) {
	h, err := c.DuplicateHandle()
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	clone, err := ClientFromHandle(h, c.opts)
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("clone: %w", err)
	}
	clone.ep = c.ep
	return clone, nil
}

// Connect dials the named server, waiting for it to start listening if
// necessary. A zero timeout waits indefinitely; otherwise the wait is
// bounded and expiry surfaces as an I/O failure.
func (c *Client) Connect(timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.connect(ctx, false)
}

// ConnectContext is Connect bounded by a caller-supplied token.
func (c *Client) ConnectContext(ctx context.Context) error {
	return c.connect(ctx, true)
}

func (c *Client) connect(ctx context.Context, hasToken bool) error {
	if hasToken {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("connect: %w: %w", ErrCanceled, err)
		}
	}

	c.mu.Lock()
	switch st := c.sm.State(); st {
	case StateCreated:
	case StateClosed:
		c.mu.Unlock()
		return fmt.Errorf("connect: %w", ErrDisposed)
	default:
		c.mu.Unlock()
		return fmt.Errorf("connect: %w (state %s)", ErrInvalidOperation, st)
	}
	if err := c.sm.transitionTo(StateConnecting); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("connect: %w", err)
	}
	c.mu.Unlock()

	conn, err := c.dialRetry(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !c.sm.Is(StateClosed) {
			_ = c.sm.transitionTo(StateCreated)
		}
		c.sm.setError(err)
		if hasToken && ctx.Err() != nil {
			return fmt.Errorf("connect: %w: %w", ErrCanceled, context.Cause(ctx))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("connect: %w: timed out waiting for %s", ErrIO, c.ep)
		}
		return opError("connect", err)
	}
	if c.sm.Is(StateClosed) {
		_ = conn.Close()
		return fmt.Errorf("connect: %w", ErrDisposed)
	}
	c.handle = newHandle(conn)
	if err := c.sm.transitionTo(StateConnected); err != nil {
		_ = c.handle.Close()
		c.handle = nil
		return fmt.Errorf("connect: %w", err)
	}
	c.opts.Logger.Debug("pipe client connected", zap.String("endpoint", c.ep.String()))
	return nil
}

// dialRetry dials until the server is listening, backing off while the
// endpoint does not exist or refuses connections.
func (c *Client) dialRetry(ctx context.Context) (net.Conn, error) {
	backoff := 20 * time.Millisecond
	for {
		conn, err := dialPipe(ctx, c.ep)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !dialRetryable(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 250*time.Millisecond {
			backoff *= 2
		}
	}
}

// ServerInstanceCount reports the number of server instances behind the
// connected handle. Valid only while connected; unsupported on platforms
// without the concept.
func (c *Client) ServerInstanceCount() (int, error) {
	if err := c.sm.require("server instance count", StateConnected); err != nil {
		return 0, err
	}
	if !c.caps.InstanceCounting {
		return 0, fmt.Errorf("server instance count: %w", ErrPlatformUnsupported)
	}
	conn, err := c.connectedConn()
	if err != nil {
		return 0, fmt.Errorf("server instance count: %w", err)
	}
	return serverInstanceCount(conn)
}

// Close releases the endpoint's resources from any state. A second Close
// fails with ErrDisposed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sm.Is(StateClosed) {
		return fmt.Errorf("close: %w", ErrDisposed)
	}
	_ = c.sm.transitionTo(StateClosed)
	if c.handle != nil {
		_ = c.handle.Close()
		c.handle = nil
	}
	return nil
}
