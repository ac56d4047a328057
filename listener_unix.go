//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddrControl sets SO_REUSEADDR before binding, permitting the
// rebinding of a recently released address.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var opErr error
	if err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return opErr
}

// setBacklog adjusts the accept queue depth by issuing another
// listen(2) on the already-listening descriptor.
func setBacklog(listener net.Listener, backlog int) error {
	sc, ok := listener.(syscall.Conn)
	if !ok {
		return fmt.Errorf("%w: %T does not expose its descriptor", errors.ErrUnsupported, listener)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := raw.Control(func(fd uintptr) {
		opErr = unix.Listen(int(fd), backlog)
	}); err != nil {
		return err
	}
	return opErr
}
