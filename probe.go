// SPDX-License-Identifier: GPL-3.0-or-later

package flow

// CapabilityKey is the type-erased view of a [*Key] used by [Queryable].
//
// Key identity is pointer identity: two keys created by separate calls
// to [NewKey] are distinct even when they share the same name.
type CapabilityKey interface {
	// CapabilityName returns the diagnostic name of the key.
	CapabilityName() string
}

// Key is a typed capability token with result type T.
//
// Keys are open-ended: any package can introduce new capability kinds
// with [NewKey] without modifying this package. The type parameter
// determines the only valid result type for a probe using the key.
type Key[T any] struct {
	name string
}

// NewKey creates a new [*Key] with the given diagnostic name.
//
// By convention the name is the fully qualified capability name,
// such as "flow.SyscallConn".
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

var _ CapabilityKey = &Key[int]{}

// CapabilityName implements [CapabilityKey].
func (k *Key[T]) CapabilityName() string {
	return k.name
}

// Queryable is an object that may expose optional extra capabilities.
//
// Capability returns the type-erased value registered for the given
// key, or nil when the object does not support the capability. The
// lookup must be side-effect-free. Unknown keys yield nil, never an
// error.
//
// Callers should use [Probe] rather than calling Capability directly:
// [Probe] recovers the typed value through a checked downcast.
type Queryable interface {
	Capability(key CapabilityKey) any
}

// Probe asks q whether it supports the capability identified by key.
//
// Returns the typed capability value and true when the capability is
// present, or the zero value and false otherwise. A value registered
// under key with the wrong dynamic type counts as absent.
func Probe[T any](q Queryable, key *Key[T]) (T, bool) {
	value, ok := q.Capability(key).(T)
	return value, ok
}

// NoCaps is the default [Queryable] implementation exposing no extra
// capabilities. Stream adapters embed it unless they deliberately
// advertise additional features.
type NoCaps struct{}

var _ Queryable = NoCaps{}

// Capability implements [Queryable] by always returning nil.
func (NoCaps) Capability(key CapabilityKey) any {
	return nil
}

// CapSet is a [Queryable] implementation backed by a map from key
// identity to capability value.
//
// The zero value is an empty set. A CapSet must not be mutated after
// the object exposing it becomes visible to probing callers.
type CapSet map[CapabilityKey]any

var _ Queryable = CapSet{}

// Capability implements [Queryable].
func (s CapSet) Capability(key CapabilityKey) any {
	return s[key]
}
