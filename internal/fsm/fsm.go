// Package fsm defines the session status machine and its legal transitions.
package fsm

import "fmt"

type Status string

type Event string

const (
	StatusIdle         Status = "idle"
	StatusStarting     Status = "starting"
	StatusRecording    Status = "recording"
	StatusStopping     Status = "stopping"
	StatusTranscribing Status = "transcribing"
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
)

const (
	EventStart       Event = "start"
	EventLaunched    Event = "launched"
	EventStop        Event = "stop"
	EventValidated   Event = "validated"
	EventTranscribed Event = "transcribed"
	EventRetry       Event = "retry"
	EventCancel      Event = "cancel"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// Terminal reports whether a status ends the session cycle.
func Terminal(status Status) bool {
	return status == StatusSuccess || status == StatusError
}

// Transition applies one event to the current status and returns the next.
// Out-of-sequence events return the current status with an error; callers
// decide whether to surface or suppress it.
func Transition(current Status, event Event) (Status, error) {
	switch current {
	case StatusIdle:
		if event == EventStart {
			return StatusStarting, nil
		}
	case StatusStarting:
		switch event {
		case EventLaunched:
			return StatusRecording, nil
		case EventFail:
			return StatusError, nil
		case EventCancel:
			return StatusIdle, nil
		}
	case StatusRecording:
		switch event {
		case EventStop:
			return StatusStopping, nil
		case EventFail:
			return StatusError, nil
		case EventCancel:
			return StatusIdle, nil
		}
	case StatusStopping:
		switch event {
		case EventValidated:
			return StatusTranscribing, nil
		case EventFail:
			return StatusError, nil
		case EventCancel:
			return StatusIdle, nil
		}
	case StatusTranscribing:
		switch event {
		case EventTranscribed:
			return StatusSuccess, nil
		case EventFail:
			return StatusError, nil
		}
	case StatusSuccess:
		if event == EventReset {
			return StatusIdle, nil
		}
	case StatusError:
		switch event {
		case EventReset:
			return StatusIdle, nil
		case EventRetry:
			return StatusTranscribing, nil
		}
	default:
		return current, fmt.Errorf("unknown status %q", current)
	}
	return current, invalidTransition(current, event)
}

func invalidTransition(status Status, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", status, event)
}
