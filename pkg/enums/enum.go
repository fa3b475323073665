package enums

import "fmt"

func contains[T ~string](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func parse[T ~string](values []T, raw, label string) (T, error) {
	for _, candidate := range values {
		if string(candidate) == raw {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q", label, raw)
}

// Transitions is a closed state machine: the allowed targets for each source
// state. States missing from the map are terminal.
type Transitions[S ~string] map[S][]S

// Allows reports whether from -> to is a legal move.
func (t Transitions[S]) Allows(from, to S) bool {
	return contains(t[from], to)
}

// Next lists the states reachable from the provided state.
func (t Transitions[S]) Next(from S) []S {
	out := make([]S, len(t[from]))
	copy(out, t[from])
	return out
}

// IsTerminal reports whether no transition leaves the state.
func (t Transitions[S]) IsTerminal(from S) bool {
	return len(t[from]) == 0
}
