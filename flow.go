// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"context"
	"io"
)

// Source is a readable stream of bytes that also answers capability probes.
//
// A Source is created bound to a concrete backing (an in-memory payload,
// an [io.Reader], an OS socket) and is exhausted permanently once it
// signals end of stream; there is no reset.
type Source interface {
	Queryable

	// ReadInto reads bytes into buf and returns the number of bytes
	// read, which is positive and at most len(buf) on success. Partial
	// reads are expected and normal.
	//
	// End of stream is signaled by [io.EOF]; a successful call never
	// returns a zero count. Any other error is a transport or backing
	// failure and is returned unchanged.
	//
	// Passing a zero-length buf is a programming error and causes a
	// panic. The buffer is exclusively owned by the caller and must
	// not be used concurrently for the duration of the call.
	//
	// ReadInto may suspend waiting for data; implementations backed by
	// blocking I/O honor cancellation through their owning scope,
	// which closes the backing when it ends.
	ReadInto(ctx context.Context, buf []byte) (int, error)
}

// Sink is a writable consumer that also answers capability probes.
//
// Writing is sink-driven: the sink pulls from the source, so it owns
// the read loop and chooses its own buffering strategy and batch size.
// A sink may probe the source for fast-path capabilities before it
// starts copying.
type Sink interface {
	Queryable

	// Write drains src completely, reading until src signals [io.EOF],
	// which ends the loop successfully. Any other error, whether from
	// reading src or from the sink's own backing, is returned
	// unchanged; no bytes read before the failure are retried.
	Write(ctx context.Context, src Source) error
}

// ShutdownDirection selects which side of a [TwoWay] to half-close.
type ShutdownDirection int

const (
	// ShutdownRead half-closes the receive side.
	ShutdownRead = ShutdownDirection(iota)

	// ShutdownWrite half-closes the send side, signaling end of
	// stream to the peer.
	ShutdownWrite

	// ShutdownBoth closes both sides.
	ShutdownBoth
)

// String returns the name of the direction.
func (d ShutdownDirection) String() string {
	switch d {
	case ShutdownRead:
		return "read"
	case ShutdownWrite:
		return "write"
	case ShutdownBoth:
		return "both"
	default:
		return "unknown"
	}
}

// TwoWay is a stream that is simultaneously a [Source] and a [Sink],
// with a direction-parameterized half-close.
//
// After a full shutdown, further reads and writes are caller errors.
// A TwoWay is not safe for concurrent use by multiple readers or
// multiple writers per direction unless the concrete adapter documents
// otherwise; single-reader/single-writer usage per direction is the
// assumed model.
type TwoWay interface {
	Source
	Sink

	// Shutdown half-closes the stream in the given direction.
	// Implementations whose backing cannot half-close return
	// [errors.ErrUnsupported].
	Shutdown(direction ShutdownDirection) error
}

// Conn is a [TwoWay] that can be closed, such as a connected socket.
//
// Close releases the backing resource. Whether a second Close is safe
// depends on the concrete adapter; socket flows in this package follow
// the [net.ErrClosed] convention of the standard library.
type Conn interface {
	TwoWay
	io.Closer
}
