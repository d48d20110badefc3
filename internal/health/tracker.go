package health

import (
	"time"
)

// State is the stable health state of one advertised address.
type State int

const (
	// StateUnknown is the state before any threshold has been reached.
	// It is treated exactly like StateUnhealthy for announcement purposes:
	// a fresh process never advertises before health is proven.
	StateUnknown State = iota

	// StateHealthy means the address should be advertised.
	StateHealthy

	// StateUnhealthy means the address must not be advertised.
	StateUnhealthy
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "UNKNOWN"
	case StateHealthy:
		return "HEALTHY"
	case StateUnhealthy:
		return "UNHEALTHY"
	default:
		return "INVALID"
	}
}

// Verdict is the outcome of a single probe attempt.
type Verdict struct {
	Healthy   bool
	CheckedAt time.Time
	// Reason carries the error detail when the verdict is unhealthy
	// (timeout, connection refused, non-success status).
	Reason string
}

// Transition is the debounced outcome of feeding one verdict to a tracker.
type Transition int

const (
	// NoTransition means the stable state did not change.
	NoTransition Transition = iota

	// BecameHealthy means the rise threshold was just reached.
	BecameHealthy

	// BecameUnhealthy means the fall threshold was just reached.
	BecameUnhealthy
)

// Tracker holds the debounce state for one advertised address.
// It is pure bookkeeping: no I/O, no clocks beyond the verdict timestamps,
// so verdict sequences can be replayed synthetically in tests.
type Tracker struct {
	state          State
	successes      int
	failures       int
	rise           int
	fall           int
	lastTransition time.Time
}

// NewTracker creates a tracker in StateUnknown. rise is the number of
// consecutive successful verdicts required to become healthy, fall the
// number of consecutive failures required to become unhealthy. Both must
// be at least 1; config validation enforces that before a tracker exists.
func NewTracker(rise, fall int) *Tracker {
	return &Tracker{
		state: StateUnknown,
		rise:  rise,
		fall:  fall,
	}
}

// Observe feeds one verdict into the tracker and reports the resulting
// transition, if any. A success resets the failure streak and vice versa;
// a threshold only fires when the streak reaches it while the stable state
// differs, so an already-stable state never re-emits.
func (t *Tracker) Observe(v Verdict) Transition {
	if v.Healthy {
		t.successes++
		t.failures = 0

		if t.successes >= t.rise && t.state != StateHealthy {
			t.state = StateHealthy
			t.successes = 0
			t.lastTransition = v.CheckedAt
			return BecameHealthy
		}
		return NoTransition
	}

	t.failures++
	t.successes = 0

	if t.failures >= t.fall && t.state != StateUnhealthy {
		t.state = StateUnhealthy
		t.failures = 0
		t.lastTransition = v.CheckedAt
		return BecameUnhealthy
	}
	return NoTransition
}

// ForceUnhealthy moves the tracker to StateUnhealthy regardless of
// counters, for the shutdown drain. It reports whether the tracker was
// Healthy beforehand, i.e. whether a withdrawal is owed.
func (t *Tracker) ForceUnhealthy(at time.Time) (wasHealthy bool) {
	wasHealthy = t.state == StateHealthy

	t.state = StateUnhealthy
	t.successes = 0
	t.failures = 0
	if wasHealthy {
		t.lastTransition = at
	}
	return wasHealthy
}

// State returns the current stable state.
func (t *Tracker) State() State {
	return t.state
}

// LastTransition returns when the stable state last changed, zero if never.
func (t *Tracker) LastTransition() time.Time {
	return t.lastTransition
}
