// Package session implements the per-session turn orchestrator and the
// registry used for graceful draining.
package session

import (
	"sync"
	"sync/atomic"
)

// Registry tracks active voice sessions and supports graceful draining.
// When draining is enabled, new sessions are rejected while in-flight
// sessions finish naturally.
//
// The mu mutex makes the draining check and wg.Add atomic in Add(), preventing
// a TOCTOU race where StartDraining+Wait could be called between the draining
// check and wg.Add.
type Registry struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	count    atomic.Int64
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a new active session. Returns false if the registry is
// draining, meaning no new sessions should be accepted. The draining check
// and WaitGroup increment are performed atomically under a mutex.
func (r *Registry) Add() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draining {
		return false
	}
	r.wg.Add(1)
	r.count.Add(1)
	return true
}

// Done marks a session as completed. Must be called exactly once per
// successful Add.
func (r *Registry) Done() {
	r.count.Add(-1)
	r.wg.Done()
}

// StartDraining sets the draining flag so that future Add calls return false.
// This is safe to call concurrently with Add; the mutex ensures no Add can
// slip through after StartDraining returns.
func (r *Registry) StartDraining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draining = true
}

// IsDraining reports whether the registry is in draining mode.
func (r *Registry) IsDraining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining
}

// ActiveCount returns the number of currently active sessions.
func (r *Registry) ActiveCount() int64 {
	return r.count.Load()
}

// Wait blocks until all active sessions have completed.
func (r *Registry) Wait() {
	r.wg.Wait()
}
