// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
)

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	return slog.New(handler), &records
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set. This is the minimum needed for code that calls
// [safeconn.LocalAddr], [safeconn.RemoteAddr], and [safeconn.Network]
// during construction.
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}

// countingSource wraps a [Source] and counts ReadInto calls.
type countingSource struct {
	NoCaps
	calls int
	src   Source
}

func (src *countingSource) ReadInto(ctx context.Context, buf []byte) (int, error) {
	src.calls++
	return src.src.ReadInto(ctx, buf)
}

// funcSource adapts a function to the [Source] interface.
type funcSource struct {
	NoCaps
	readInto func(ctx context.Context, buf []byte) (int, error)
}

func (src *funcSource) ReadInto(ctx context.Context, buf []byte) (int, error) {
	return src.readInto(ctx, buf)
}

// recorder collects values safely from concurrent handlers.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) append(value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
}

func (r *recorder[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}
