// Package syncx holds the optimistic-update discipline shared by the
// conversation engine and the frame lifecycle: apply a local mutation
// immediately, await the authoritative remote response, then reconcile
// with server truth or flag the local state as failed. Local state is
// never silently reverted.
package syncx

import (
	"errors"
	"sync"
)

// ErrInFlight is returned when a second mutation is attempted against an
// entity that already has one pending. Callers are expected to re-invoke
// explicitly; nothing is queued.
var ErrInFlight = errors.New("an operation is already in flight")

// Gate is a non-blocking single-flight guard for one logical entity.
// The zero value is ready to use.
type Gate struct {
	mu   sync.Mutex
	busy bool
}

// TryAcquire claims the gate. It returns false if a holder exists.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

// Release frees the gate for the next caller.
func (g *Gate) Release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

// Busy reports whether a mutation is currently in flight.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// Mutation runs the apply/await/reconcile-or-flag protocol for one remote
// call returning R. Apply runs before the call so the caller gets instant
// local feedback; exactly one of Reconcile or OnFailure runs afterward.
type Mutation[R any] struct {
	// Apply performs the optimistic local change. Optional.
	Apply func()
	// Call performs the remote round trip. Required.
	Call func() (R, error)
	// Reconcile replaces optimistic state with server truth on success.
	Reconcile func(R)
	// OnFailure flags (never reverts) the optimistic state on error.
	OnFailure func(error)
}

// Run executes the mutation and returns the remote call's error, if any.
func (m Mutation[R]) Run() error {
	if m.Apply != nil {
		m.Apply()
	}
	result, err := m.Call()
	if err != nil {
		if m.OnFailure != nil {
			m.OnFailure(err)
		}
		return err
	}
	if m.Reconcile != nil {
		m.Reconcile(result)
	}
	return nil
}
