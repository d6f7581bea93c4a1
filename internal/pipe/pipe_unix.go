//go:build !windows

package pipe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/pipelink/pipelink-go/internal/pipename"
)

// listenPipe creates the OS listener for a server endpoint. On POSIX the
// pipe is a Unix domain socket at the resolved path.
func listenPipe(ep pipename.Endpoint, opts *ServerOptions) (net.Listener, error) {
	if ep.Scheme != "unix" {
		return nil, fmt.Errorf("%w: endpoint scheme %q", ErrPlatformUnsupported, ep.Scheme)
	}
	// A socket file left behind by a dead listener blocks the bind.
	if _, err := os.Stat(ep.Path); err == nil {
		_ = os.Remove(ep.Path)
	}
	ln, err := net.Listen("unix", ep.Path)
	if err != nil {
		return nil, err
	}
	if opts.InputBufferSize > 0 || opts.OutputBufferSize > 0 {
		if uln, ok := ln.(*net.UnixListener); ok {
			applyListenerBuffers(uln, opts)
		}
	}
	return ln, nil
}

func applyListenerBuffers(_ *net.UnixListener, _ *ServerOptions) {
	// Socket buffers are set per accepted connection; see tuneConn.
}

// tuneConn applies requested buffer sizes to an accepted connection.
func tuneConn(conn net.Conn, opts *ServerOptions) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return
	}
	if opts.InputBufferSize > 0 {
		_ = uc.SetReadBuffer(int(opts.InputBufferSize))
	}
	if opts.OutputBufferSize > 0 {
		_ = uc.SetWriteBuffer(int(opts.OutputBufferSize))
	}
}

// dialPipe connects to an existing pipe endpoint.
func dialPipe(ctx context.Context, ep pipename.Endpoint) (net.Conn, error) {
	if ep.Scheme != "unix" {
		return nil, fmt.Errorf("%w: endpoint scheme %q", ErrPlatformUnsupported, ep.Scheme)
	}
	var d net.Dialer
	return d.DialContext(ctx, "unix", ep.Path)
}

// dialRetryable reports whether a failed dial should be retried because
// the server is not listening yet.
func dialRetryable(err error) bool {
	return errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED)
}

// socketBufferSizes queries the connected socket's receive and send
// buffer sizes.
func socketBufferSizes(conn net.Conn) (in, out int32) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, 0
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, 0
	}
	_ = raw.Control(func(fd uintptr) {
		if v, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF); err == nil {
			in = int32(v)
		}
		if v, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF); err == nil {
			out = int32(v)
		}
	})
	return in, out
}

// listenerClosed reports whether an accept failed because the listener
// was closed underneath it.
func listenerClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// serverInstanceCount has no POSIX equivalent.
func serverInstanceCount(_ net.Conn) (int, error) {
	return 0, fmt.Errorf("server instance count: %w", ErrPlatformUnsupported)
}
