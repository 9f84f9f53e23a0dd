// Package security restricts the control socket to the user running the
// service.
package security

import (
	"errors"
	"net"
)

// ErrForeignPeer is returned when a control client runs as another user.
var ErrForeignPeer = errors.New("control client belongs to another user")

// VerifyPeer accepts conn only when the process on the other end runs with
// the same uid as this one. Connections that are not unix sockets are
// accepted unchanged.
func VerifyPeer(conn net.Conn) error {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil
	}
	return verifyUnixPeer(uc)
}
