// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewKey returns a distinct key carrying the given diagnostic name.
func TestNewKey(t *testing.T) {
	first := NewKey[int]("flow.test.First")
	second := NewKey[int]("flow.test.First")

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "flow.test.First", first.CapabilityName())

	// Identity is pointer identity: same name, still distinct keys.
	assert.NotSame(t, first, second)
}

// Probe on an object with no capabilities returns absent for every
// key, including previously-unseen key types.
func TestProbeAbsentOnPlainAdapters(t *testing.T) {
	type customFeature interface{ Frobnicate() }

	intKey := NewKey[int]("flow.test.Int")
	strKey := NewKey[string]("flow.test.String")
	customKey := NewKey[customFeature]("flow.test.Custom")

	queryables := []struct {
		// name describes the object under probe.
		name string

		// q is the object under probe.
		q Queryable
	}{
		{name: "NoCaps", q: NoCaps{}},
		{name: "string source", q: NewStringSource("hello")},
		{name: "bytes source", q: NewBytesSource([]byte{1, 2, 3})},
		{name: "buffer sink", q: NewBufferSink()},
		{name: "reader source", q: NewReaderSource(nil)},
		{name: "writer sink", q: NewWriterSink(nil)},
		{name: "empty cap set", q: CapSet{}},
		{name: "nil cap set", q: CapSet(nil)},
	}

	for _, tt := range queryables {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := Probe(tt.q, intKey)
			assert.False(t, ok)
			assert.Zero(t, value)

			str, ok := Probe(tt.q, strKey)
			assert.False(t, ok)
			assert.Zero(t, str)

			custom, ok := Probe(tt.q, customKey)
			assert.False(t, ok)
			assert.Nil(t, custom)
		})
	}
}

// Probe recovers a registered capability with its static type.
func TestProbePresent(t *testing.T) {
	key := NewKey[string]("flow.test.Greeting")
	caps := CapSet{key: "hello"}

	value, ok := Probe(caps, key)

	require.True(t, ok)
	assert.Equal(t, "hello", value)
}

// Probe treats a value registered with the wrong dynamic type as absent.
func TestProbeWrongDynamicType(t *testing.T) {
	key := NewKey[string]("flow.test.Greeting")
	caps := CapSet{key: 42} // int, not string

	value, ok := Probe(caps, key)

	assert.False(t, ok)
	assert.Zero(t, value)
}

// Two keys with the same name and type do not alias each other's
// registrations.
func TestProbeKeyIdentity(t *testing.T) {
	first := NewKey[int]("flow.test.Same")
	second := NewKey[int]("flow.test.Same")
	caps := CapSet{first: 7}

	value, ok := Probe(caps, first)
	require.True(t, ok)
	assert.Equal(t, 7, value)

	_, ok = Probe(caps, second)
	assert.False(t, ok)
}
