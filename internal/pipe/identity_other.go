//go:build !linux

package pipe

import (
	"fmt"
	"net"
)

func peerIdentity(_ net.Conn) (Identity, error) {
	return Identity{}, fmt.Errorf("remote identity: %w", ErrPlatformUnsupported)
}
