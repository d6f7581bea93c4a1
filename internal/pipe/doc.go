// Package pipe implements a cross-platform duplex named-pipe engine:
// named pipes on Windows (via go-winio), Unix domain sockets elsewhere,
// behind one connection lifecycle.
//
// The package models the harder parts of local IPC rather than the
// stream plumbing: an explicit per-endpoint state machine, cancellable
// connection and I/O waits with three independent cancellation sources,
// platform-divergent disconnect semantics expressed as a capability
// table, and duplication of a live handle into an independent endpoint
// without double-owning the OS resource.
package pipe
