// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// A span is a sequence of operations with a single, specific failure
// mode. For example, the lifetime of one accepted connection inside
// [ListeningSocket.AcceptLoop], which tags the events of each
// connection with a fresh span ID.
//
// We recommend using a span ID for uniquely identifying spans.
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
