// Package fsm defines the dictation turn state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateDispatching  State = "dispatching"
	StateTransforming State = "transforming"
	StatePasting      State = "pasting"
	StateError        State = "error"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	EventDispatch    Event = "dispatch"
	EventTransform   Event = "transform"
	EventPaste       Event = "paste"
	EventDone        Event = "done"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// Busy reports whether a turn is past recording and can no longer be cancelled.
func (s State) Busy() bool {
	switch s {
	case StateTranscribing, StateDispatching, StateTransforming, StatePasting:
		return true
	default:
		return false
	}
}

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateTranscribing, nil
		case EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventTranscribed:
			return StateDispatching, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDispatching:
		switch event {
		case EventTransform:
			return StateTransforming, nil
		case EventPaste:
			return StatePasting, nil
		case EventDone:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTransforming:
		switch event {
		case EventDispatch:
			// re-transcription after a language switch goes back to dispatch
			return StateDispatching, nil
		case EventPaste:
			return StatePasting, nil
		case EventDone:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePasting:
		switch event {
		case EventDone:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
