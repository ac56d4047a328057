// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewScope returns a scope with a live context.
func TestNewScope(t *testing.T) {
	scope := NewScope(context.Background())

	require.NotNil(t, scope)
	require.NotNil(t, scope.Context())
	assert.NoError(t, scope.Context().Err())
}

// End cancels the scope's context.
func TestScopeEndCancelsContext(t *testing.T) {
	scope := NewScope(context.Background())

	scope.End()

	require.ErrorIs(t, scope.Context().Err(), context.Canceled)
}

// End runs each registered close action exactly once, including over
// repeated End calls.
func TestScopeOnEndFiresOnce(t *testing.T) {
	scope := NewScope(context.Background())
	var fired atomic.Int64
	scope.OnEnd(func() { fired.Add(1) })

	scope.End()
	scope.End()

	assert.Equal(t, int64(1), fired.Load())
}

// The release function runs the action early; End does not run it
// again, and calling release twice does nothing.
func TestScopeOnEndEarlyRelease(t *testing.T) {
	scope := NewScope(context.Background())
	var fired atomic.Int64
	release := scope.OnEnd(func() { fired.Add(1) })

	release()
	release()
	assert.Equal(t, int64(1), fired.Load())

	scope.End()
	assert.Equal(t, int64(1), fired.Load())
}

// Calling release after End does not run the action a second time.
func TestScopeOnEndReleaseAfterEnd(t *testing.T) {
	scope := NewScope(context.Background())
	var fired atomic.Int64
	release := scope.OnEnd(func() { fired.Add(1) })

	scope.End()
	release()

	assert.Equal(t, int64(1), fired.Load())
}

// Registering on an already-ended scope runs the action immediately.
func TestScopeOnEndAfterEnd(t *testing.T) {
	scope := NewScope(context.Background())
	scope.End()

	var fired atomic.Int64
	scope.OnEnd(func() { fired.Add(1) })

	assert.Equal(t, int64(1), fired.Load())
}

// End waits for work spawned with Go before returning.
func TestScopeEndWaitsForSpawnedWork(t *testing.T) {
	scope := NewScope(context.Background())
	var finished atomic.Bool
	started := make(chan struct{})

	scope.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		finished.Store(true)
	})

	<-started
	scope.End()

	assert.True(t, finished.Load())
}

// Ending the parent ends the child before the parent's End returns.
func TestScopeChildEndsWithParent(t *testing.T) {
	parent := NewScope(context.Background())
	child := parent.Child()
	var fired atomic.Int64
	child.OnEnd(func() { fired.Add(1) })

	parent.End()

	assert.Equal(t, int64(1), fired.Load())
	require.ErrorIs(t, child.Context().Err(), context.Canceled)
}

// A child ended early detaches from the parent; its actions do not run
// again when the parent ends.
func TestScopeChildEarlyEndDetaches(t *testing.T) {
	parent := NewScope(context.Background())
	child := parent.Child()
	var fired atomic.Int64
	child.OnEnd(func() { fired.Add(1) })

	child.End()
	assert.Equal(t, int64(1), fired.Load())

	parent.End()
	assert.Equal(t, int64(1), fired.Load())
}

// Cancelling the ancestor context propagates to the scope and its
// children without running close actions.
func TestScopeAncestorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	parent := NewScope(ctx)
	child := parent.Child()
	var fired atomic.Int64
	child.OnEnd(func() { fired.Add(1) })

	cancel()

	<-child.Context().Done()
	assert.Equal(t, int64(0), fired.Load())

	parent.End()
	assert.Equal(t, int64(1), fired.Load())
}
