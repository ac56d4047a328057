// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import "os"

// Environment bundles the capabilities a program receives from its
// process environment: the standard streams and a [Network] factory.
//
// The bundle is plain composition: each field is an independent
// capability and callers may substitute any of them, which is the
// recommended way to inject fakes in tests.
type Environment struct {
	// Stdin is the standard input as a [Source].
	Stdin Source

	// Stdout is the standard output as a [Sink].
	Stdout Sink

	// Stderr is the standard error as a [Sink].
	Stderr Sink

	// Net is the [Network] factory.
	Net Network
}

// OSEnvironment assembles an [*Environment] from the process standard
// streams and an [*OSNetwork].
//
// The cfg argument contains the common configuration for flow network
// operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func OSEnvironment(cfg *Config, logger SLogger) *Environment {
	return &Environment{
		Stdin:  NewReaderSource(os.Stdin),
		Stdout: NewWriterSink(os.Stdout),
		Stderr: NewWriterSink(os.Stderr),
		Net:    NewOSNetwork(cfg, logger),
	}
}
