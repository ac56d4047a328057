// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// KeySyscallConn is the capability advertised by socket-backed flows
// that expose their underlying descriptor as a [syscall.RawConn].
//
// Probing for this key lets generic copy algorithms discover whether a
// flow supports descriptor-level fast paths (such as splice-style
// transfers) without static knowledge of the concrete type.
var KeySyscallConn = NewKey[syscall.RawConn]("flow.SyscallConn")

// newSockFlow wraps a [net.Conn] into a socket-backed [Conn] flow.
func newSockFlow(
	conn net.Conn, classifier ErrClassifier, logger SLogger, timeNow func() time.Time) *sockFlow {
	sock := &sockFlow{
		caps:       CapSet{},
		classifier: classifier,
		closeonce:  sync.Once{},
		conn:       conn,
		laddr:      safeconn.LocalAddr(conn),
		logger:     logger,
		protocol:   safeconn.Network(conn),
		raddr:      safeconn.RemoteAddr(conn),
		release:    nil,
	}
	if timeNow == nil {
		timeNow = time.Now
	}
	sock.timeNow = timeNow
	if sc, ok := conn.(syscall.Conn); ok {
		if raw, err := sc.SyscallConn(); err == nil {
			sock.caps[KeySyscallConn] = raw
		}
	}
	return sock
}

// sockFlow is a [Conn] over a kernel socket.
//
// The flow honors cancellation through its owning scope: when the
// scope ends the connection is closed, causing in-flight reads and
// writes to fail promptly.
type sockFlow struct {
	caps       CapSet
	classifier ErrClassifier
	closeonce  sync.Once
	conn       net.Conn
	laddr      string
	logger     SLogger
	protocol   string
	raddr      string
	release    func()
	timeNow    func() time.Time
}

var _ Conn = &sockFlow{}

// bindScope attaches the flow's lifetime to the given scope: the
// connection is closed when the scope ends if not already closed.
func (f *sockFlow) bindScope(scope *Scope) {
	f.release = scope.OnEnd(func() { f.closeConn() })
}

// Capability implements [Queryable].
func (f *sockFlow) Capability(key CapabilityKey) any {
	return f.caps.Capability(key)
}

// ReadInto implements [Source].
func (f *sockFlow) ReadInto(ctx context.Context, buf []byte) (int, error) {
	runtimex.Assert(len(buf) > 0)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		t0 := f.timeNow()
		f.logger.Debug(
			"readStart",
			slog.Int("ioBufferSize", len(buf)),
			slog.String("localAddr", f.laddr),
			slog.String("protocol", f.protocol),
			slog.String("remoteAddr", f.raddr),
			slog.Time("t", t0),
		)

		count, err := f.conn.Read(buf)

		f.logger.Debug(
			"readDone",
			slog.Int("ioBytesCount", count),
			slog.Any("err", err),
			slog.String("errClass", f.classifier.Classify(err)),
			slog.String("localAddr", f.laddr),
			slog.String("protocol", f.protocol),
			slog.String("remoteAddr", f.raddr),
			slog.Time("t0", t0),
			slog.Time("t", f.timeNow()),
		)

		// Reconcile io.Reader semantics with the Source contract: a
		// positive count is a success even alongside io.EOF, which
		// the socket reports again on the next call, and (0, nil)
		// triggers another read rather than a zero-count success.
		if count > 0 {
			return count, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// Write implements [Sink] by pulling from src and forwarding each
// chunk to the socket until src signals [io.EOF].
func (f *sockFlow) Write(ctx context.Context, src Source) error {
	scratch := make([]byte, DefaultScratchSize)
	return Drain(ctx, src, scratch, func(chunk []byte) error {
		t0 := f.timeNow()
		f.logger.Debug(
			"writeStart",
			slog.Int("ioBufferSize", len(chunk)),
			slog.String("localAddr", f.laddr),
			slog.String("protocol", f.protocol),
			slog.String("remoteAddr", f.raddr),
			slog.Time("t", t0),
		)

		count, err := f.conn.Write(chunk)

		f.logger.Debug(
			"writeDone",
			slog.Int("ioBytesCount", count),
			slog.Any("err", err),
			slog.String("errClass", f.classifier.Classify(err)),
			slog.String("localAddr", f.laddr),
			slog.String("protocol", f.protocol),
			slog.String("remoteAddr", f.raddr),
			slog.Time("t0", t0),
			slog.Time("t", f.timeNow()),
		)

		if err != nil {
			return err
		}
		if count < len(chunk) {
			return io.ErrShortWrite
		}
		return nil
	})
}

// closeReader is the half-close capability of the receive side,
// satisfied by [*net.TCPConn] and [*net.UnixConn].
type closeReader interface {
	CloseRead() error
}

// closeWriter is the half-close capability of the send side,
// satisfied by [*net.TCPConn] and [*net.UnixConn].
type closeWriter interface {
	CloseWrite() error
}

// Shutdown implements [TwoWay].
//
// Returns [errors.ErrUnsupported] when the underlying connection
// cannot half-close in the requested direction.
func (f *sockFlow) Shutdown(direction ShutdownDirection) error {
	switch direction {
	case ShutdownRead:
		return f.shutdownRead()
	case ShutdownWrite:
		return f.shutdownWrite()
	case ShutdownBoth:
		return errors.Join(f.shutdownRead(), f.shutdownWrite())
	default:
		return fmt.Errorf("%w: unknown shutdown direction %d", errors.ErrUnsupported, direction)
	}
}

func (f *sockFlow) shutdownRead() error {
	conn, ok := f.conn.(closeReader)
	if !ok {
		return fmt.Errorf("%w: %T cannot half-close the read side", errors.ErrUnsupported, f.conn)
	}
	return conn.CloseRead()
}

func (f *sockFlow) shutdownWrite() error {
	conn, ok := f.conn.(closeWriter)
	if !ok {
		return fmt.Errorf("%w: %T cannot half-close the write side", errors.ErrUnsupported, f.conn)
	}
	return conn.CloseWrite()
}

// Close implements [Conn]: it closes the connection and detaches the
// flow from its owning scope, if any.
//
// Subsequent calls return [net.ErrClosed], consistent with Go's
// standard library behavior for closed connections.
func (f *sockFlow) Close() error {
	err := f.closeConn()
	if f.release != nil {
		f.release()
	}
	return err
}

// closeConn closes the underlying connection exactly once. It is also
// the close action registered against the owning scope, which must not
// go through [sockFlow.Close] to avoid re-entering the scope.
func (f *sockFlow) closeConn() (err error) {
	err = net.ErrClosed
	f.closeonce.Do(func() {
		t0 := f.timeNow()
		f.logger.Info(
			"closeStart",
			slog.String("localAddr", f.laddr),
			slog.String("protocol", f.protocol),
			slog.String("remoteAddr", f.raddr),
			slog.Time("t", t0),
		)

		err = f.conn.Close()

		f.logger.Info(
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", f.classifier.Classify(err)),
			slog.String("localAddr", f.laddr),
			slog.String("protocol", f.protocol),
			slog.String("remoteAddr", f.raddr),
			slog.Time("t0", t0),
			slog.Time("t", f.timeNow()),
		)
	})
	return
}
