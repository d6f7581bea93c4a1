//go:build linux

package pipe

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// peerIdentity queries the peer credentials of a connected socket via
// SO_PEERCRED.
func peerIdentity(conn net.Conn) (Identity, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return Identity{}, fmt.Errorf("remote identity: %w", ErrPlatformUnsupported)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return Identity{}, fmt.Errorf("remote identity: %w", err)
	}
	var cred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return Identity{}, fmt.Errorf("remote identity: %w", err)
	}
	if credErr != nil {
		return Identity{}, fmt.Errorf("remote identity: %w (%v)", ErrIO, credErr)
	}
	return Identity{PID: cred.Pid, UID: cred.Uid, GID: cred.Gid}, nil
}
