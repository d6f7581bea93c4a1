//go:build linux

package pipe

// Unix domain sockets surface remote disconnects lazily as end-of-stream,
// answer buffer-size queries from the connected socket, and identify the
// peer process via SO_PEERCRED. Instance counting has no equivalent.
var platformCaps = Capabilities{
	EagerDisconnect:         false,
	BufferQuery:             BufferQuerySocket,
	RemoteIdentity:          true,
	InstanceCounting:        false,
	StaleHandleAcceptIO:     false,
	ReacceptAfterDisconnect: false,
}
