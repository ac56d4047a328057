// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// Network manufactures scope-owned socket resources.
//
// Every resource returned by a Network is owned by the [*Scope] passed
// at creation time: the scope is the authority for teardown, and the
// resource is closed when the scope ends. A caller may additionally
// close a resource early, but must not assume it outlives its scope.
type Network interface {
	// Bind creates a socket bound to addr and already listening with
	// the default accept queue depth; use [ListeningSocket.Listen] to
	// adjust it. With reuseAddr, the implementation permits rebinding
	// a recently released address.
	Bind(scope *Scope, addr Sockaddr, reuseAddr bool) (*ListeningSocket, error)

	// Connect establishes an outbound connection to addr and returns
	// it as a ready [Conn]. Connect suspends while the handshake
	// completes and honors cancellation of the scope's context.
	Connect(scope *Scope, addr Sockaddr) (Conn, error)
}

// NewOSNetwork returns a new [*OSNetwork] using the configured dialer.
//
// The cfg argument contains the common configuration for flow network
// operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewOSNetwork(cfg *Config, logger SLogger) *OSNetwork {
	return &OSNetwork{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// OSNetwork is the [Network] implementation backed by kernel sockets.
//
// All fields are safe to modify after construction but before first
// use. Fields must not be mutated concurrently with calls to methods.
type OSNetwork struct {
	// Dialer is the [Dialer] to use.
	//
	// Set by [NewOSNetwork] from [Config.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewOSNetwork] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or
	// custom logging).
	//
	// Set by [NewOSNetwork] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time (configurable
	// for testing).
	//
	// Set by [NewOSNetwork] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Network = &OSNetwork{}

// Bind implements [Network].
//
// The socket is created bound and listening, in that order; with
// reuseAddr, SO_REUSEADDR is set before binding.
func (op *OSNetwork) Bind(scope *Scope, addr Sockaddr, reuseAddr bool) (*ListeningSocket, error) {
	runtimex.Assert(scope != nil)
	t0 := op.TimeNow()
	op.logBindStart(addr, reuseAddr, t0)
	config := &net.ListenConfig{}
	if reuseAddr {
		config.Control = reuseAddrControl
	}
	listener, err := config.Listen(scope.Context(), addr.Network(), addr.dialAddr())
	op.logBindDone(addr, reuseAddr, t0, listener, err)
	if err != nil {
		return nil, err
	}
	socket := &ListeningSocket{
		errClassifier: op.ErrClassifier,
		listener:      listener,
		logger:        op.Logger,
		timeNow:       op.TimeNow,
	}
	socket.release = scope.OnEnd(func() { socket.closeSocket() })
	return socket, nil
}

// Connect implements [Network].
func (op *OSNetwork) Connect(scope *Scope, addr Sockaddr) (Conn, error) {
	runtimex.Assert(scope != nil)
	t0 := op.TimeNow()
	deadline, _ := scope.Context().Deadline()
	op.logConnectStart(addr, t0, deadline)
	conn, err := op.Dialer.DialContext(scope.Context(), addr.Network(), addr.dialAddr())
	op.logConnectDone(addr, t0, deadline, conn, err)
	if err != nil {
		return nil, err
	}
	sock := newSockFlow(conn, op.ErrClassifier, op.Logger, op.TimeNow)
	sock.bindScope(scope)
	return sock, nil
}

func (op *OSNetwork) logBindStart(addr Sockaddr, reuseAddr bool, t0 time.Time) {
	op.Logger.Info(
		"bindStart",
		slog.String("localAddr", addr.String()),
		slog.String("protocol", addr.Network()),
		slog.Bool("reuseAddr", reuseAddr),
		slog.Time("t", t0),
	)
}

func (op *OSNetwork) logBindDone(
	addr Sockaddr, reuseAddr bool, t0 time.Time, listener net.Listener, err error) {
	localAddr := addr.String()
	if listener != nil {
		localAddr = sockaddrFromNetAddr(listener.Addr()).String()
	}
	op.Logger.Info(
		"bindDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", localAddr),
		slog.String("protocol", addr.Network()),
		slog.Bool("reuseAddr", reuseAddr),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}

func (op *OSNetwork) logConnectStart(addr Sockaddr, t0 time.Time, deadline time.Time) {
	op.Logger.Info(
		"connectStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", addr.Network()),
		slog.String("remoteAddr", addr.String()),
		slog.Time("t", t0),
	)
}

func (op *OSNetwork) logConnectDone(
	addr Sockaddr, t0 time.Time, deadline time.Time, conn net.Conn, err error) {
	op.Logger.Info(
		"connectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", addr.Network()),
		slog.String("remoteAddr", addr.String()),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
