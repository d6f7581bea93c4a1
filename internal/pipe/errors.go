package pipe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// Error kinds surfaced by endpoint operations. Callers classify with
// errors.Is; every failing operation wraps exactly one of these.
var (
	// ErrInvalidOperation reports a call made in the wrong connection
	// phase: double connect, double disconnect, I/O before the endpoint
	// is connected.
	ErrInvalidOperation = errors.New("invalid operation for current pipe state")

	// ErrDisposed reports an operation attempted after the endpoint
	// released its resources.
	ErrDisposed = errors.New("pipe endpoint is disposed")

	// ErrCanceled reports a cooperatively cancelled wait. Errors wrapping
	// ErrCanceled also satisfy errors.Is(err, context.Canceled) when the
	// cancellation came from a caller token.
	ErrCanceled = errors.New("pipe operation canceled")

	// ErrIO reports a transport failure, including platform-specific
	// external-interruption outcomes that cannot be proven to be a
	// cancellation.
	ErrIO = errors.New("pipe i/o failure")

	// ErrBrokenPipe is the ErrIO case where the remote peer is gone.
	ErrBrokenPipe = fmt.Errorf("%w: broken pipe", ErrIO)

	// ErrPlatformUnsupported reports a feature the current platform's
	// pipe implementation does not offer.
	ErrPlatformUnsupported = errors.New("not supported on this platform")

	// ErrInvalidArgument reports out-of-range configuration, such as an
	// unrecognized transmission mode.
	ErrInvalidArgument = errors.New("invalid argument")
)

// opError wraps a raw transport error with the operation name and, where
// recognizable, one of the taxonomy kinds above.
func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isDisconnectError(err) {
		return fmt.Errorf("%s: %w (%v)", op, ErrBrokenPipe, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTaxonomy(err error) bool {
	return errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrDisposed) ||
		errors.Is(err, ErrCanceled) ||
		errors.Is(err, ErrIO) ||
		errors.Is(err, ErrPlatformUnsupported) ||
		errors.Is(err, ErrInvalidArgument)
}

func isDisposed(err error) bool {
	return errors.Is(err, ErrDisposed)
}

// isDisconnectError reports whether err means the remote peer is gone.
func isDisconnectError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return false
}

// isTimeoutError reports whether err is a deadline expiry, which is how
// an in-flight interruption surfaces through the ordinary error channel.
func isTimeoutError(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
