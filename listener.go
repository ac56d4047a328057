// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// ListeningSocket owns a bound, listening kernel socket.
//
// Instances are created by [OSNetwork.Bind], which binds and then
// starts listening, in that order. The socket is owned by the scope
// passed to Bind: it is closed when the scope ends, or earlier via
// [ListeningSocket.Close].
type ListeningSocket struct {
	// closeonce makes closing idempotent.
	closeonce sync.Once

	// errClassifier classifies errors for structured logging.
	errClassifier ErrClassifier

	// listener is the underlying [net.Listener].
	listener net.Listener

	// logger emits structured log events.
	logger SLogger

	// release detaches the socket from its owning scope and closes it.
	release func()

	// timeNow returns the current time.
	timeNow func() time.Time
}

// Handler handles one accepted connection inside [ListeningSocket.AcceptLoop].
//
// The handler runs as a unit of work bound to scope, a fresh child of
// the loop's scope; conn is closed automatically when that child scope
// ends if the handler has not already closed it. A non-nil return
// value is delivered to the loop's error callback.
type Handler func(scope *Scope, conn Conn, peer Sockaddr) error

// Addr returns the local address the socket is bound to.
func (ls *ListeningSocket) Addr() Sockaddr {
	return sockaddrFromNetAddr(ls.listener.Addr())
}

// Listen adjusts the accept queue depth to backlog.
//
// The socket is already listening when created, so Listen is optional
// and may be called more than once: each call issues another listen(2)
// on the descriptor, which updates the backlog on platforms that
// support it. Returns [errors.ErrUnsupported] when the backlog cannot
// be adjusted.
//
// The backlog must be positive; violating this is a programming error
// and causes a panic.
func (ls *ListeningSocket) Listen(backlog int) error {
	runtimex.Assert(backlog > 0)
	err := setBacklog(ls.listener, backlog)
	ls.logger.Info(
		"listenDone",
		slog.Int("backlog", backlog),
		slog.Any("err", err),
		slog.String("errClass", ls.errClassifier.Classify(err)),
		slog.String("localAddr", ls.Addr().String()),
		slog.String("protocol", ls.listener.Addr().Network()),
		slog.Time("t", ls.timeNow()),
	)
	return err
}

// Accept waits for the next incoming connection and returns it as a
// [Conn] together with the peer address.
//
// The returned flow is NOT bound to a scope: the caller manages its
// lifetime. Most servers should use [ListeningSocket.AcceptLoop]
// instead, which binds each flow to a per-connection child scope.
//
// Accept suspends until a connection arrives. Cancellation is
// delivered by closing the socket, typically when the owning scope
// ends; a pre-cancelled ctx fails immediately.
func (ls *ListeningSocket) Accept(ctx context.Context) (Conn, Sockaddr, error) {
	sock, peer, err := ls.accept(ctx)
	if err != nil {
		return nil, Sockaddr{}, err
	}
	return sock, peer, nil
}

func (ls *ListeningSocket) accept(ctx context.Context) (*sockFlow, Sockaddr, error) {
	if err := ctx.Err(); err != nil {
		return nil, Sockaddr{}, err
	}
	t0 := ls.timeNow()
	conn, err := ls.listener.Accept()
	ls.logAcceptDone(t0, conn, err)
	if err != nil {
		return nil, Sockaddr{}, err
	}
	peer := sockaddrFromNetAddr(conn.RemoteAddr())
	return newSockFlow(conn, ls.errClassifier, ls.logger, ls.timeNow), peer, nil
}

// AcceptLoop accepts connections until the scope ends or the socket is
// closed, handling each connection concurrently.
//
// For each accepted connection the loop creates a child scope nested
// under scope, binds the connection flow to it, and spawns handler as
// a unit of work; the flow is closed when the child scope ends if the
// handler has not already closed it. A handler failure is delivered to
// onError and never stops the loop or affects other connections.
//
// AcceptLoop returns nil when the scope ends or the socket is closed,
// and returns any other accept error unchanged. Ending the scope
// cancels all in-flight child scopes and waits for their handlers.
func (ls *ListeningSocket) AcceptLoop(scope *Scope, onError func(err error), handler Handler) error {
	runtimex.Assert(scope != nil)
	runtimex.Assert(onError != nil)
	runtimex.Assert(handler != nil)
	for {
		sock, peer, err := ls.accept(scope.Context())
		if err != nil {
			if scope.Context().Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		spanID := NewSpanID()
		child := scope.Child()
		sock.bindScope(child)
		ls.logHandleStart(spanID, sock, peer)
		scope.Go(func(ctx context.Context) {
			defer child.End()
			err := handler(child, sock, peer)
			ls.logHandleDone(spanID, sock, peer, err)
			if err != nil {
				onError(err)
			}
		})
	}
}

// Close closes the listening socket and detaches it from its owning
// scope.
//
// Subsequent calls return [net.ErrClosed], consistent with Go's
// standard library behavior for closed sockets.
func (ls *ListeningSocket) Close() error {
	err := ls.closeSocket()
	if ls.release != nil {
		ls.release()
	}
	return err
}

// closeSocket closes the underlying listener exactly once. It is also
// the close action registered against the owning scope, which must not
// go through [ListeningSocket.Close] to avoid re-entering the scope.
func (ls *ListeningSocket) closeSocket() (err error) {
	err = net.ErrClosed
	ls.closeonce.Do(func() {
		t0 := ls.timeNow()
		addr := ls.Addr().String()
		protocol := ls.listener.Addr().Network()
		ls.logger.Info(
			"closeStart",
			slog.String("localAddr", addr),
			slog.String("protocol", protocol),
			slog.Time("t", t0),
		)

		err = ls.listener.Close()

		ls.logger.Info(
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", ls.errClassifier.Classify(err)),
			slog.String("localAddr", addr),
			slog.String("protocol", protocol),
			slog.Time("t0", t0),
			slog.Time("t", ls.timeNow()),
		)
	})
	return
}

func (ls *ListeningSocket) logAcceptDone(t0 time.Time, conn net.Conn, err error) {
	ls.logger.Info(
		"acceptDone",
		slog.Any("err", err),
		slog.String("errClass", ls.errClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", ls.listener.Addr().Network()),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t0", t0),
		slog.Time("t", ls.timeNow()),
	)
}

func (ls *ListeningSocket) logHandleStart(spanID string, sock *sockFlow, peer Sockaddr) {
	ls.logger.Info(
		"handleStart",
		slog.String("localAddr", sock.laddr),
		slog.String("protocol", sock.protocol),
		slog.String("remoteAddr", peer.String()),
		slog.String("spanID", spanID),
		slog.Time("t", ls.timeNow()),
	)
}

func (ls *ListeningSocket) logHandleDone(spanID string, sock *sockFlow, peer Sockaddr, err error) {
	ls.logger.Info(
		"handleDone",
		slog.Any("err", err),
		slog.String("errClass", ls.errClassifier.Classify(err)),
		slog.String("localAddr", sock.laddr),
		slog.String("protocol", sock.protocol),
		slog.String("remoteAddr", peer.String()),
		slog.String("spanID", spanID),
		slog.Time("t", ls.timeNow()),
	)
}
