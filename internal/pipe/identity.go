package pipe

// Identity describes the process on the far side of a connected pipe.
// Availability is platform-dependent; see Capabilities.RemoteIdentity.
type Identity struct {
	PID int32
	UID uint32
	GID uint32
}
