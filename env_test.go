// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// OSEnvironment populates every capability of the bundle.
func TestOSEnvironment(t *testing.T) {
	env := OSEnvironment(NewConfig(), DefaultSLogger())

	require.NotNil(t, env)
	assert.NotNil(t, env.Stdin)
	assert.NotNil(t, env.Stdout)
	assert.NotNil(t, env.Stderr)
	assert.NotNil(t, env.Net)

	// The network factory is the kernel-socket implementation
	_, ok := env.Net.(*OSNetwork)
	assert.True(t, ok)
}

// The standard-stream capabilities answer probes with absent.
func TestOSEnvironmentProbing(t *testing.T) {
	env := OSEnvironment(NewConfig(), DefaultSLogger())
	key := NewKey[int]("flow.test.Unknown")

	_, ok := Probe(env.Stdin, key)
	assert.False(t, ok)
	_, ok = Probe(env.Stdout, key)
	assert.False(t, ok)
	_, ok = Probe(env.Stderr, key)
	assert.False(t, ok)
}
