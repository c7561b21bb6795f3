// Package model provides run-state tracking and the estimator interfaces
// shared across ManufacturingNet.
package model

import (
	"fmt"
	"sync"
)

// RunState is the lifecycle state of a model run.
type RunState int

const (
	// Uninitialized means the dataset is absent or has not been validated.
	Uninitialized RunState = iota
	// Configured means the dataset validated and a configuration was obtained.
	Configured
	// Fitted means the estimator fit succeeded and metrics were computed.
	Fitted
	// Failed means the estimator faulted; the model handle has been reset.
	Failed
)

func (s RunState) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Configured:
		return "Configured"
	case Fitted:
		return "Fitted"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// validTransitions lists the allowed state changes. A failed or fitted
// run may be reconfigured and retried.
var validTransitions = map[RunState][]RunState{
	Uninitialized: {Configured},
	Configured:    {Fitted, Failed, Configured},
	Fitted:        {Configured},
	Failed:        {Configured},
}

// StateMachine tracks the run state of a single model wrapper. The
// wrapper itself is single-threaded; the lock only guards observers
// reading the state from another goroutine.
type StateMachine struct {
	state RunState
	mu    sync.RWMutex
}

// NewStateMachine creates a StateMachine in the Uninitialized state.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: Uninitialized}
}

// Current returns the current state.
func (s *StateMachine) Current() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Transition moves to the given state, or reports an error when the
// transition is not allowed from the current state.
func (s *StateMachine) Transition(to RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range validTransitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid state transition: %s -> %s", s.state, to)
}

// Reset returns the machine to Uninitialized regardless of current state.
func (s *StateMachine) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Uninitialized
}

// IsFitted reports whether the last run completed successfully.
func (s *StateMachine) IsFitted() bool {
	return s.Current() == Fitted
}

// RequireFitted returns an error unless the machine is in the Fitted state.
func (s *StateMachine) RequireFitted() error {
	if current := s.Current(); current != Fitted {
		return fmt.Errorf("model is not fitted (state: %s); call Run() first", current)
	}
	return nil
}
