package pipe

import (
	"fmt"

	"go.uber.org/zap"
)

// Direction declares which way bytes may flow from the endpoint's own
// point of view.
type Direction int

const (
	// DirectionIn allows the endpoint to read only.
	DirectionIn Direction = iota
	// DirectionOut allows the endpoint to write only.
	DirectionOut
	// DirectionInOut allows both.
	DirectionInOut
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionInOut:
		return "inout"
	default:
		return "unknown"
	}
}

// CanRead reports whether the direction permits reads.
func (d Direction) CanRead() bool { return d == DirectionIn || d == DirectionInOut }

// CanWrite reports whether the direction permits writes.
func (d Direction) CanWrite() bool { return d == DirectionOut || d == DirectionInOut }

// Mirror returns the direction as seen from the remote peer.
func (d Direction) Mirror() Direction {
	switch d {
	case DirectionIn:
		return DirectionOut
	case DirectionOut:
		return DirectionIn
	default:
		return DirectionInOut
	}
}

func (d Direction) valid() bool {
	return d == DirectionIn || d == DirectionOut || d == DirectionInOut
}

// TransmissionMode selects byte-stream or message-boundary-preserving
// transfer. Message boundaries are honored only where the platform pipe
// implementation supports them; elsewhere the mode is accepted but the
// stream behaves as bytes (see Capabilities.MessageBoundaries).
type TransmissionMode int

const (
	// ModeByte is a plain byte stream.
	ModeByte TransmissionMode = iota
	// ModeMessage preserves write boundaries where supported.
	ModeMessage
)

// String returns the string representation of the transmission mode.
func (m TransmissionMode) String() string {
	switch m {
	case ModeByte:
		return "byte"
	case ModeMessage:
		return "message"
	default:
		return "unknown"
	}
}

func (m TransmissionMode) valid() bool {
	return m == ModeByte || m == ModeMessage
}

// MetricsSink receives engine-level measurements. Implementations must be
// safe for concurrent use. A nil sink disables measurement.
type MetricsSink interface {
	ObserveTransition(endpoint, from, to string)
	AddBytes(endpoint, direction string, n int)
}

// ServerOptions configures a ServerEndpoint.
type ServerOptions struct {
	Direction    Direction
	Mode         TransmissionMode
	MaxInstances int

	// Requested pipe buffer sizes. Zero means the platform default.
	InputBufferSize  int32
	OutputBufferSize int32

	// SecurityDescriptor is an SDDL string applied to the pipe on
	// Windows; ignored elsewhere.
	SecurityDescriptor string

	// AllowReaccept controls whether a disconnected server may accept a
	// fresh client. Nil selects the platform default
	// (Capabilities.ReacceptAfterDisconnect).
	AllowReaccept *bool

	Logger  *zap.Logger
	Metrics MetricsSink
}

func (o *ServerOptions) normalize() (*ServerOptions, error) {
	out := &ServerOptions{}
	if o != nil {
		*out = *o
	}
	if !out.Direction.valid() {
		return nil, fmt.Errorf("%w: direction %d", ErrInvalidArgument, out.Direction)
	}
	if !out.Mode.valid() {
		return nil, fmt.Errorf("%w: transmission mode %d", ErrInvalidArgument, out.Mode)
	}
	if out.MaxInstances == 0 {
		out.MaxInstances = 1
	}
	if out.MaxInstances < 0 {
		return nil, fmt.Errorf("%w: max instances %d", ErrInvalidArgument, out.MaxInstances)
	}
	if out.InputBufferSize < 0 || out.OutputBufferSize < 0 {
		return nil, fmt.Errorf("%w: negative buffer size", ErrInvalidArgument)
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out, nil
}

// ClientOptions configures a ClientEndpoint.
type ClientOptions struct {
	Direction Direction
	Mode      TransmissionMode

	Logger  *zap.Logger
	Metrics MetricsSink
}

func (o *ClientOptions) normalize() (*ClientOptions, error) {
	out := &ClientOptions{}
	if o != nil {
		*out = *o
	}
	if !out.Direction.valid() {
		return nil, fmt.Errorf("%w: direction %d", ErrInvalidArgument, out.Direction)
	}
	if !out.Mode.valid() {
		return nil, fmt.Errorf("%w: transmission mode %d", ErrInvalidArgument, out.Mode)
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out, nil
}
