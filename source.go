// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"context"
	"io"

	"github.com/bassosimone/runtimex"
)

// NewStringSource returns a [*BytesSource] reading the bytes of s.
func NewStringSource(s string) *BytesSource {
	return &BytesSource{rest: []byte(s)}
}

// NewBytesSource returns a [*BytesSource] reading a private copy of
// data, so later mutations of data do not affect the stream.
func NewBytesSource(data []byte) *BytesSource {
	rest := make([]byte, len(data))
	copy(rest, data)
	return &BytesSource{rest: rest}
}

// BytesSource is an in-memory [Source] over an immutable byte payload.
//
// The source keeps a remaining-view cursor over the payload: each read
// narrows the view and never mutates the payload itself. Once the view
// is empty the source is exhausted permanently.
//
// BytesSource exposes no extra capabilities.
type BytesSource struct {
	NoCaps
	rest []byte
}

var _ Source = &BytesSource{}

// ReadInto implements [Source].
//
// Each call copies min(remaining, len(buf)) bytes and advances the
// cursor; it returns [io.EOF] exactly when the remaining view is
// empty. The two outcomes are mutually exclusive: a non-EOF call
// always returns a positive count.
//
// The payload is in memory, so ReadInto never suspends and ignores
// the context.
func (src *BytesSource) ReadInto(ctx context.Context, buf []byte) (int, error) {
	runtimex.Assert(len(buf) > 0)
	if len(src.rest) <= 0 {
		return 0, io.EOF
	}
	count := copy(buf, src.rest)
	src.rest = src.rest[count:]
	return count, nil
}

// Remaining returns the number of bytes not yet read.
func (src *BytesSource) Remaining() int {
	return len(src.rest)
}

// NewReaderSource returns a [Source] reading from r.
//
// The adapter reconciles the [io.Reader] contract with the [Source]
// contract: a (0, nil) result from r causes another read rather than a
// zero-count success, and a positive count accompanied by [io.EOF] is
// reported as a plain success, with [io.EOF] surfacing on the next
// call.
//
// The returned source exposes no extra capabilities. Closing r, when
// applicable, remains the caller's responsibility.
func NewReaderSource(r io.Reader) Source {
	return &readerSource{r: r}
}

// readerSource adapts an [io.Reader] to the [Source] contract.
type readerSource struct {
	NoCaps
	r io.Reader
}

// ReadInto implements [Source].
func (src *readerSource) ReadInto(ctx context.Context, buf []byte) (int, error) {
	runtimex.Assert(len(buf) > 0)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		count, err := src.r.Read(buf)
		if count > 0 {
			// Defer a simultaneous io.EOF to the next call: the
			// Source contract keeps "more data" and "exhausted"
			// mutually exclusive.
			return count, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
