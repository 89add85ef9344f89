// Package fsm defines the push-to-talk session states and their transition guards.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

const (
	// EventActivate is the combo becoming fully held.
	EventActivate Event = "activate"
	// EventDeactivate is any combo member being released.
	EventDeactivate Event = "deactivate"
	// EventFinish ends processing, whatever its outcome.
	EventFinish Event = "finish"
	// EventAbort drops an active recording without processing it.
	EventAbort Event = "abort"
)

// TransitionError reports an event that has no edge from the current state.
// Callers treat it as "ignored": the state is left unchanged.
type TransitionError struct {
	State State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s --(%s)--> ?", e.State, e.Event)
}

// Transition returns the next state for event, or the current state and a
// *TransitionError when the event does not apply.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		if event == EventActivate {
			return StateRecording, nil
		}
	case StateRecording:
		switch event {
		case EventDeactivate:
			return StateProcessing, nil
		case EventAbort:
			return StateIdle, nil
		}
	case StateProcessing:
		if event == EventFinish {
			return StateIdle, nil
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, &TransitionError{State: current, Event: event}
}
