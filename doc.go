// SPDX-License-Identifier: GPL-3.0-or-later

// Package flow provides capability-probing byte-stream and socket primitives.
//
// # Core Abstractions
//
// The package is built around three stream roles:
//
//   - [Source]: a readable stream of bytes
//   - [Sink]: a writable consumer that drains a [Source]
//   - [TwoWay]: a bidirectional stream with half-close support
//
// Every stream role also satisfies [Queryable], the runtime capability
// registry. Callers probe a stream for optional extra features using
// [Probe] and a typed [Key], without static knowledge of the concrete
// type. Probing an unknown key yields "absent", never an error, so
// generic algorithms can opportunistically use a faster path (say, a
// descriptor-level transfer advertised via [KeySyscallConn]) and fall
// back to the universal byte-copy path otherwise.
//
// # Reading and Writing
//
// [Source.ReadInto] fills a caller-owned buffer and returns the number
// of bytes read, which is always positive on success. End of stream is
// signaled by [io.EOF] and only by [io.EOF]: a successful read never
// returns a zero count. Passing a zero-length buffer is a programming
// error and causes a panic.
//
// Writing is sink-driven: [Sink.Write] accepts a [Source] and owns the
// read loop, so each sink chooses its own buffering strategy and batch
// size, and may probe the source for fast paths before copying. [Copy]
// and [CopyString] are thin wrappers over this model.
//
// # Concrete Adapters
//
//   - [NewStringSource], [NewBytesSource]: in-memory sources over an
//     immutable payload with a remaining-view cursor
//   - [NewBufferSink]: accumulates everything read into a growable
//     byte buffer
//   - [NewReaderSource], [NewWriterSink]: bridges to [io.Reader] and
//     [io.Writer], used for the process standard streams
//
// # Sockets and Scopes
//
// The [Network] interface manufactures listening sockets ([OSNetwork.Bind])
// and outbound connections ([OSNetwork.Connect]). Every resource it
// creates is owned by a [*Scope]: when the scope ends, the resource is
// closed, and any unit of work spawned under the scope is cancelled and
// awaited. A caller may close a resource early, but must not assume it
// outlives its scope.
//
// [ListeningSocket.AcceptLoop] accepts connections in a loop, creating
// a child scope per connection and spawning the handler under it; the
// connection flow is closed automatically when the child scope ends.
// Handler failures are routed to an error callback and never stop the
// loop or affect other connections.
//
// # Observability
//
// All socket operations support structured logging via [SLogger]
// (compatible with [log/slog]). By default, logging is disabled; set a
// custom [*slog.Logger] to enable it. Error classification is
// configurable via [ErrClassifier].
//
// Lifecycle events (bindStart/bindDone, connectStart/connectDone,
// acceptDone, closeStart/closeDone) are emitted at [slog.LevelInfo];
// per-I/O events (readStart/readDone, writeStart/writeDone) at
// [slog.LevelDebug]. Events share a common set of fields: localAddr,
// remoteAddr, protocol, and t (timestamp); completion events add t0,
// err, and errClass. Use [NewSpanID] to generate a unique identifier
// for correlating the events of a single connection.
//
// # Timeout and Context Philosophy
//
// This package is context-transparent: operations never modify the
// context they receive. Socket flows are unblocked on cancellation by
// their owning scope, which closes the underlying connection when it
// ends; in-flight reads and writes then fail promptly.
//
// # Design Boundaries
//
// This package intentionally provides only primitives. Retry policy,
// name resolution, TLS, and multi-connection orchestration are out of
// scope and belong to higher-level packages.
package flow
