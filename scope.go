// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"context"
	"sync"

	"github.com/bassosimone/runtimex"
)

// NewScope creates a root [*Scope] nested under ctx.
//
// Cancelling ctx cancels the scope's context and everything nested
// under the scope, but close actions and spawned work are only awaited
// by [Scope.End].
func NewScope(ctx context.Context) *Scope {
	runtimex.Assert(ctx != nil)
	ctx, cancel := context.WithCancel(ctx)
	return &Scope{
		actions: make(map[*scopeAction]struct{}),
		cancel:  cancel,
		ctx:     ctx,
	}
}

// Scope is a structured-lifetime owner for resources and units of
// concurrent work.
//
// Resources register close actions with [Scope.OnEnd]; units of work
// are spawned with [Scope.Go]; nested lifetimes are created with
// [Scope.Child]. [Scope.End] cancels the scope's context, runs every
// close action exactly once, ends child scopes, and waits for spawned
// work before returning.
//
// A Scope is safe for concurrent use.
type Scope struct {
	// actions holds the registered close actions. Nil after End.
	actions map[*scopeAction]struct{}

	// cancel cancels ctx.
	cancel context.CancelFunc

	// ctx is the scope's context.
	ctx context.Context

	// endOnce makes End idempotent.
	endOnce sync.Once

	// ended records that End has started, under mu.
	ended bool

	// forget removes this scope's registration from its parent;
	// nil for root scopes.
	forget func()

	// mu protects actions and ended.
	mu sync.Mutex

	// wg tracks work spawned with Go.
	wg sync.WaitGroup
}

// scopeAction is a close action that runs at most once.
type scopeAction struct {
	fn   func()
	once sync.Once
}

func (a *scopeAction) run() {
	a.once.Do(a.fn)
}

// Context returns the scope's context, which is cancelled when the
// scope ends or when an ancestor context is cancelled.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Child creates a scope nested under s.
//
// Ending the parent ends the child first, before the parent's End
// returns. A child ended early by its owner detaches from the parent.
func (s *Scope) Child() *Scope {
	child := NewScope(s.ctx)
	action := s.register(child.End)
	child.forget = func() { s.unregister(action) }
	return child
}

// Go spawns fn as a unit of work bound to the scope.
//
// The function receives the scope's context and should return promptly
// once that context is cancelled. [Scope.End] waits for all spawned
// work. Spawning after End is permitted but the work starts with an
// already-cancelled context.
func (s *Scope) Go(fn func(ctx context.Context)) {
	runtimex.Assert(fn != nil)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// OnEnd registers fn to run when the scope ends.
//
// The action fires exactly once: either when [Scope.End] runs, or
// earlier through the returned release function. Calling release after
// the action has fired does nothing. Registering on an already-ended
// scope runs fn immediately.
//
// The order in which a scope runs its close actions is unspecified.
func (s *Scope) OnEnd(fn func()) (release func()) {
	runtimex.Assert(fn != nil)
	action := s.register(fn)
	return func() {
		s.unregister(action)
		action.run()
	}
}

// End ends the scope: it cancels the scope's context, runs the
// registered close actions (ending child scopes along the way), and
// waits for spawned work to return. End is idempotent; concurrent
// calls block until the first one completes.
func (s *Scope) End() {
	s.endOnce.Do(s.doEnd)
}

func (s *Scope) doEnd() {
	if s.forget != nil {
		s.forget()
	}
	s.cancel()
	s.mu.Lock()
	s.ended = true
	actions := make([]*scopeAction, 0, len(s.actions))
	for action := range s.actions {
		actions = append(actions, action)
	}
	s.actions = nil
	s.mu.Unlock()
	for _, action := range actions {
		action.run()
	}
	s.wg.Wait()
}

func (s *Scope) register(fn func()) *scopeAction {
	action := &scopeAction{fn: fn}
	s.mu.Lock()
	ended := s.ended
	if !ended {
		s.actions[action] = struct{}{}
	}
	s.mu.Unlock()
	if ended {
		action.run()
	}
	return action
}

func (s *Scope) unregister(action *scopeAction) {
	s.mu.Lock()
	delete(s.actions, action)
	s.mu.Unlock()
}
