package client

import "fmt"

// State ist der Zustand einer einzelnen Anfrage.
type State int

const (
	StateIdle State = iota
	StateInFlight
	StateRetryWait
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in_flight"
	case StateRetryWait:
		return "retry_wait"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal meldet Endzustände.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:      {StateInFlight},
	StateInFlight:  {StateSuccess, StateRetryWait, StateFailed},
	StateRetryWait: {StateInFlight, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition beschreibt einen Zustandswechsel für einen StateObserver.
type Transition struct {
	Method  string
	Path    string
	Attempt int
	From    State
	To      State
}

// StateObserver wird bei jedem Zustandswechsel synchron aufgerufen.
type StateObserver func(Transition)

// requestState führt die Zustandsmaschine einer Anfrage.
type requestState struct {
	method   string
	path     string
	attempt  int
	current  State
	observer StateObserver
}

func newRequestState(method, path string, observer StateObserver) *requestState {
	return &requestState{method: method, path: path, current: StateIdle, observer: observer}
}

func (r *requestState) to(next State) {
	if !canTransition(r.current, next) {
		panic(fmt.Sprintf("client: invalid state transition %s -> %s", r.current, next))
	}
	if next == StateInFlight {
		r.attempt++
	}
	prev := r.current
	r.current = next
	if r.observer != nil {
		r.observer(Transition{Method: r.method, Path: r.path, Attempt: r.attempt, From: prev, To: next})
	}
}
