// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"context"
	"errors"
	"io"

	"github.com/bassosimone/runtimex"
)

// DefaultScratchSize is the scratch-buffer size used by the generic
// byte-copy path when no other size is configured.
const DefaultScratchSize = 4096

// Copy drains src into dst.
//
// Because writing is sink-driven, Copy is equivalent to calling
// dst.Write(ctx, src): the sink owns the read loop. Copy never drops
// bytes, preserves byte order, and treats the stream as opaque bytes.
// Only [io.EOF] from src terminates the copy successfully; any other
// error, from reading or from the sink, propagates unchanged.
func Copy(ctx context.Context, dst Sink, src Source) error {
	return dst.Write(ctx, src)
}

// CopyString copies the bytes of s into dst.
//
// Equivalent to Copy with a [NewStringSource] over s.
func CopyString(ctx context.Context, dst Sink, s string) error {
	return Copy(ctx, dst, NewStringSource(s))
}

// Drain implements the universal byte-copy loop shared by sink
// implementations: it repeatedly reads src into scratch and passes
// each chunk to emit, until src signals [io.EOF].
//
// The chunk passed to emit aliases scratch and is only valid for the
// duration of the call. An error from emit, or any read error other
// than [io.EOF], stops the loop and is returned unchanged.
//
// Passing an empty scratch buffer is a programming error and causes a
// panic.
func Drain(ctx context.Context, src Source, scratch []byte, emit func(chunk []byte) error) error {
	runtimex.Assert(len(scratch) > 0)
	for {
		count, err := src.ReadInto(ctx, scratch)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := emit(scratch[:count]); err != nil {
			return err
		}
	}
}
