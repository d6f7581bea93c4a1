package pipe

// BufferQueryPolicy selects how buffer-size properties are answered.
type BufferQueryPolicy int

const (
	// BufferQueryConfigured reports the sizes the listener was created
	// with; zero before a connection exists.
	BufferQueryConfigured BufferQueryPolicy = iota
	// BufferQuerySocket queries the connected socket; zero before a
	// connection exists.
	BufferQuerySocket
)

// Capabilities is the per-platform policy table. One instance is selected
// at build time (see caps_windows.go and friends); behavior differences
// between platforms live here rather than in scattered conditionals.
type Capabilities struct {
	// EagerDisconnect is true where a remote disconnect surfaces as an
	// immediate error on the next I/O, false where it is discovered
	// lazily as end-of-stream.
	EagerDisconnect bool

	// BufferQuery selects the buffer-size property policy.
	BufferQuery BufferQueryPolicy

	// MessageBoundaries is true where the platform pipe honors
	// message-mode write boundaries.
	MessageBoundaries bool

	// RemoteIdentity is true where the identity of the peer process can
	// be queried from a connected pipe.
	RemoteIdentity bool

	// InstanceCounting is true where the number of live server instances
	// behind a client handle is a meaningful query.
	InstanceCounting bool

	// StaleHandleAcceptIO is true where accepting after the previously
	// connected client handle was disposed surfaces an I/O error, false
	// where the endpoint tracks connection state independently of the
	// remote handle and reports an invalid operation instead.
	StaleHandleAcceptIO bool

	// ReacceptAfterDisconnect is the default for whether a disconnected
	// server may accept a fresh client; overridable per server.
	ReacceptAfterDisconnect bool
}

// PlatformCapabilities returns the capability table for the build target.
func PlatformCapabilities() Capabilities { return platformCaps }
