//go:build !windows && !linux

package pipe

// Non-Linux POSIX platforms behave like Linux except that peer
// credentials are not queried.
var platformCaps = Capabilities{
	EagerDisconnect:         false,
	BufferQuery:             BufferQuerySocket,
	RemoteIdentity:          false,
	InstanceCounting:        false,
	StaleHandleAcceptIO:     false,
	ReacceptAfterDisconnect: false,
}
