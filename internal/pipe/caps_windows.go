//go:build windows

package pipe

// Windows named pipes report broken connections eagerly, expose instance
// counts, and answer buffer-size queries from the listener configuration.
var platformCaps = Capabilities{
	EagerDisconnect:         true,
	BufferQuery:             BufferQueryConfigured,
	MessageBoundaries:       true,
	RemoteIdentity:          false,
	InstanceCounting:        true,
	StaleHandleAcceptIO:     true,
	ReacceptAfterDisconnect: true,
}
