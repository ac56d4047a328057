// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"bytes"
	"context"
	"io"

	"github.com/bassosimone/runtimex"
)

// NewBufferSink returns a [*BufferSink] with default scratch size.
func NewBufferSink() *BufferSink {
	return &BufferSink{ScratchSize: DefaultScratchSize}
}

// BufferSink is a [Sink] accumulating everything it reads into a
// growable in-memory byte buffer.
//
// On [BufferSink.Write] the sink allocates one scratch buffer and pulls
// from the source until end of stream, appending each chunk as raw
// bytes; no encoding transformation is performed. Only [io.EOF] ends
// the loop successfully.
//
// BufferSink exposes no extra capabilities.
type BufferSink struct {
	NoCaps

	// ScratchSize is the scratch-buffer size used by Write.
	//
	// Set by [NewBufferSink] to [DefaultScratchSize]. Must be positive.
	ScratchSize int

	acc bytes.Buffer
}

var _ Sink = &BufferSink{}

// Write implements [Sink].
func (snk *BufferSink) Write(ctx context.Context, src Source) error {
	runtimex.Assert(snk.ScratchSize > 0)
	scratch := make([]byte, snk.ScratchSize)
	return Drain(ctx, src, scratch, func(chunk []byte) error {
		snk.acc.Write(chunk) // cannot fail per bytes.Buffer contract
		return nil
	})
}

// Bytes returns the accumulated bytes.
//
// The returned slice aliases the internal buffer and is only valid
// until the next Write.
func (snk *BufferSink) Bytes() []byte {
	return snk.acc.Bytes()
}

// String returns the accumulated bytes as a string.
func (snk *BufferSink) String() string {
	return snk.acc.String()
}

// Len returns the number of accumulated bytes.
func (snk *BufferSink) Len() int {
	return snk.acc.Len()
}

// NewWriterSink returns a [Sink] forwarding everything it reads to w.
//
// Each chunk is written in full; a short write surfaces as
// [io.ErrShortWrite]. The returned sink exposes no extra capabilities.
// Closing w, when applicable, remains the caller's responsibility.
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

// writerSink adapts an [io.Writer] to the [Sink] contract.
type writerSink struct {
	NoCaps
	w io.Writer
}

// Write implements [Sink].
func (snk *writerSink) Write(ctx context.Context, src Source) error {
	scratch := make([]byte, DefaultScratchSize)
	return Drain(ctx, src, scratch, func(chunk []byte) error {
		count, err := snk.w.Write(chunk)
		if err != nil {
			return err
		}
		if count < len(chunk) {
			return io.ErrShortWrite
		}
		return nil
	})
}
