package job

import "fmt"

// State represents the lifecycle of an export job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

var allStates = []State{
	StatePending,
	StateRunning,
	StateCompleted,
	StateFailed,
	StateCancelled,
}

var allowedTransitions = map[State][]State{
	StatePending: {StateRunning, StateFailed, StateCancelled},
	StateRunning: {StateCompleted, StateFailed, StateCancelled},
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// ParseState converts a stored string into a State.
func ParseState(raw string) (State, error) {
	for _, s := range allStates {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown job state %q", raw)
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
