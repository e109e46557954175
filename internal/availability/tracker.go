// Package availability tracks the health of the fast cache tier. The tier
// is modeled as {available, degraded}: consecutive failures flip it to
// degraded, and after a cooldown a single probe request is let through to
// test recovery. Transitions are automatic; no manual intervention.
//
//	Available → Degraded   when consecutive failures ≥ failureThreshold
//	Degraded  → Probing    after cooldown elapses
//	Probing   → Available  on success
//	Probing   → Degraded   on failure
package availability

import (
	"sync"
	"time"
)

// State represents the tracked tier's current state.
type State int

const (
	// StateAvailable — the tier is healthy; requests go through.
	StateAvailable State = iota
	// StateDegraded — the tier is considered unreachable; requests skip it.
	StateDegraded
	// StateProbing — cooldown elapsed; one request is testing recovery.
	StateProbing
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateDegraded:
		return "degraded"
	case StateProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// Tracker guards one fast-cache tier.
type Tracker struct {
	mu               sync.Mutex
	state            State
	failureCount     int
	failureThreshold int
	cooldown         time.Duration
	degradedUntil    time.Time
}

// New creates a Tracker. Defaults are applied for zero/negative values:
// failureThreshold=3, cooldown=15s.
func New(failureThreshold int, cooldown time.Duration) *Tracker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if cooldown <= 0 {
		cooldown = 15 * time.Second
	}
	return &Tracker{
		state:            StateAvailable,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

// State returns the current state, transitioning Degraded→Probing if the
// cooldown has elapsed.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolveState()
}

// resolveState must be called with t.mu held.
func (t *Tracker) resolveState() State {
	if t.state == StateDegraded && time.Now().After(t.degradedUntil) {
		t.state = StateProbing
	}
	return t.state
}

// Allow reports whether the tier should be tried for the next operation.
func (t *Tracker) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolveState() != StateDegraded
}

// RecordSuccess notifies the tracker that a tier operation succeeded.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateAvailable
	t.failureCount = 0
}

// RecordFailure notifies the tracker that a tier operation failed.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.resolveState() {
	case StateAvailable:
		t.failureCount++
		if t.failureCount >= t.failureThreshold {
			t.state = StateDegraded
			t.degradedUntil = time.Now().Add(t.cooldown)
		}
	case StateProbing:
		t.state = StateDegraded
		t.degradedUntil = time.Now().Add(t.cooldown)
	}
}
