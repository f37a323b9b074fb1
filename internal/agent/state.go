package agent

import "fmt"

// State identifies a phase of an orchestration run.
type State int

const (
	// StatePlanning is the question-decomposition phase.
	StatePlanning State = iota
	// StateResearching covers the per-sub-question pipeline passes.
	StateResearching
	// StateSynthesizing is the final completion over accumulated research.
	StateSynthesizing
	// StateDone is terminal.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StateResearching:
		return "researching"
	case StateSynthesizing:
		return "synthesizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StateError wraps a run failure with the state it occurred in, so callers
// deciding whether to resume, restart or discard know how far the run got.
// Step is the research step index; -1 outside StateResearching.
type StateError struct {
	State State
	Step  int
	Err   error
}

// Error implements error.
func (e *StateError) Error() string {
	if e.State == StateResearching {
		return fmt.Sprintf("agent run failed in %s step %d: %v", e.State, e.Step, e.Err)
	}
	return fmt.Sprintf("agent run failed in %s: %v", e.State, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StateError) Unwrap() error { return e.Err }

func stateErr(state State, step int, err error) *StateError {
	return &StateError{State: state, Step: step, Err: err}
}
