// Package layout computes and caches the subway-map placement of branches.
package layout

import "errors"

// Status is the lifecycle status of one branch's layout entry. There is no
// error terminal state: a branch with a broken ancestry falls back to a
// deterministic default placement instead of blocking rendering.
type Status string

const (
	StatusUnlaid   Status = "unlaid"   // Never computed
	StatusComputed Status = "computed" // Placement current for the tree shape
	StatusStale    Status = "stale"    // Tree mutated since last compute
)

// ErrInvalidTransition is returned when a status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid layout status transition")

// ValidTransitions defines allowed status transitions.
var ValidTransitions = map[Status][]Status{
	StatusUnlaid:   {StatusComputed},
	StatusComputed: {StatusStale, StatusComputed},
	StatusStale:    {StatusComputed},
}

// IsUsable reports whether a placement in this status may still be rendered.
// Stale placements remain readable while a recompute is in flight.
func (s Status) IsUsable() bool {
	return s == StatusComputed || s == StatusStale
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if a transition to the target status is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts the transition and returns an error if invalid.
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}
