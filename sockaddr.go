// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"fmt"
	"net"
	"net/netip"
)

// Sockaddr is an immutable socket address value.
//
// A Sockaddr is either a filesystem-path identity (a Unix-domain
// socket) or a network (address, port) pair. The zero value is not a
// valid address; construct one with [UnixSockaddr] or [InetSockaddr].
type Sockaddr struct {
	addrPort netip.AddrPort
	path     string
	unix     bool
}

// UnixSockaddr returns a [Sockaddr] identified by a filesystem path.
func UnixSockaddr(path string) Sockaddr {
	return Sockaddr{path: path, unix: true}
}

// InetSockaddr returns a [Sockaddr] for a network (address, port) pair.
func InetSockaddr(addrPort netip.AddrPort) Sockaddr {
	return Sockaddr{addrPort: addrPort}
}

// IsUnix reports whether the address is a filesystem-path identity.
func (sa Sockaddr) IsUnix() bool {
	return sa.unix
}

// Path returns the filesystem path of a Unix-domain address, or the
// empty string for a network address.
func (sa Sockaddr) Path() string {
	return sa.path
}

// AddrPort returns the (address, port) pair of a network address, or
// the zero [netip.AddrPort] for a Unix-domain address.
func (sa Sockaddr) AddrPort() netip.AddrPort {
	return sa.addrPort
}

// Network returns the network name to use when dialing or listening:
// "unix" for filesystem-path addresses and "tcp" otherwise.
func (sa Sockaddr) Network() string {
	if sa.unix {
		return "unix"
	}
	return "tcp"
}

// String returns the diagnostic textual form of the address:
// "unix:<path>" for filesystem-path addresses and "inet:<host>:<port>"
// otherwise, with the host in its canonical textual representation.
//
// This form is for diagnostics only and is not a wire protocol.
func (sa Sockaddr) String() string {
	if sa.unix {
		return "unix:" + sa.path
	}
	return fmt.Sprintf("inet:%s:%d", sa.addrPort.Addr(), sa.addrPort.Port())
}

// dialAddr returns the address in the form expected by the [net]
// package for the network returned by [Sockaddr.Network].
func (sa Sockaddr) dialAddr() string {
	if sa.unix {
		return sa.path
	}
	return sa.addrPort.String()
}

// sockaddrFromNetAddr converts a [net.Addr] into a [Sockaddr].
//
// Unknown address implementations map to a Unix-domain address over
// their string form, which keeps the result diagnostic-friendly.
func sockaddrFromNetAddr(addr net.Addr) Sockaddr {
	switch addr := addr.(type) {
	case *net.TCPAddr:
		return InetSockaddr(addr.AddrPort())
	case *net.UDPAddr:
		return InetSockaddr(addr.AddrPort())
	case *net.UnixAddr:
		return UnixSockaddr(addr.Name)
	default:
		return UnixSockaddr(addr.String())
	}
}
