//go:build windows

package pipe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	winio "github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"

	"github.com/pipelink/pipelink-go/internal/pipename"
)

// listenPipe creates the named pipe listener for a server endpoint.
func listenPipe(ep pipename.Endpoint, opts *ServerOptions) (net.Listener, error) {
	if ep.Scheme != "npipe" {
		return nil, fmt.Errorf("%w: endpoint scheme %q", ErrPlatformUnsupported, ep.Scheme)
	}
	cfg := &winio.PipeConfig{
		SecurityDescriptor: opts.SecurityDescriptor,
		MessageMode:        opts.Mode == ModeMessage,
		InputBufferSize:    opts.InputBufferSize,
		OutputBufferSize:   opts.OutputBufferSize,
	}
	return winio.ListenPipe(ep.Path, cfg)
}

// tuneConn is a no-op: buffer sizes are fixed by the pipe configuration.
func tuneConn(_ net.Conn, _ *ServerOptions) {}

// dialPipe connects to an existing named pipe, waiting for a free
// instance until ctx is done.
func dialPipe(ctx context.Context, ep pipename.Endpoint) (net.Conn, error) {
	if ep.Scheme != "npipe" {
		return nil, fmt.Errorf("%w: endpoint scheme %q", ErrPlatformUnsupported, ep.Scheme)
	}
	return winio.DialPipeContext(ctx, ep.Path)
}

// dialRetryable reports whether a failed dial should be retried because
// the server is not listening yet.
func dialRetryable(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, windows.ERROR_FILE_NOT_FOUND)
}

// listenerClosed reports whether an accept failed because the listener
// was closed underneath it.
func listenerClosed(err error) bool {
	return errors.Is(err, winio.ErrPipeListenerClosed) || errors.Is(err, net.ErrClosed)
}

// socketBufferSizes queries the pipe's buffer sizes where the connection
// exposes its handle; winio connections do not, so callers fall back to
// the configured values per the capability table.
func socketBufferSizes(conn net.Conn) (in, out int32) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, 0
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, 0
	}
	var inSize, outSize uint32
	_ = raw.Control(func(fd uintptr) {
		_ = windows.GetNamedPipeInfo(windows.Handle(fd), nil, &outSize, &inSize, nil)
	})
	return int32(inSize), int32(outSize)
}

// serverInstanceCount queries the maximum instance count of the pipe
// behind a connected client handle.
func serverInstanceCount(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("server instance count: %w", ErrPlatformUnsupported)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("server instance count: %w", err)
	}
	var maxInstances uint32
	var infoErr error
	if err := raw.Control(func(fd uintptr) {
		infoErr = windows.GetNamedPipeInfo(windows.Handle(fd), nil, nil, nil, &maxInstances)
	}); err != nil {
		return 0, fmt.Errorf("server instance count: %w", err)
	}
	if infoErr != nil {
		return 0, fmt.Errorf("server instance count: %w (%v)", ErrIO, infoErr)
	}
	return int(maxInstances), nil
}
