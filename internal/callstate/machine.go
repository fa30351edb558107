// Package callstate tracks bridged calls through idle, ringing, connected and ended.
package callstate

import (
	"errors"
	"fmt"
	"strings"
)

// State is a call's position in the lifecycle.
type State string

const (
	Idle      State = "idle"
	Ringing   State = "ringing"
	Connected State = "connected"
	Ended     State = "ended"
)

// Event drives a transition.
type Event string

const (
	// None marks provider statuses that do not move the call.
	None   Event = ""
	Ring   Event = "ring"
	Answer Event = "answer"
	Hang   Event = "hang"
)

var (
	// ErrInvalidTransition is returned when an event does not apply to the current state.
	ErrInvalidTransition = errors.New("invalid call state transition")
	// ErrUnknownStatus is returned for provider statuses with no mapping.
	ErrUnknownStatus = errors.New("unknown call status")
)

var statusEvents = map[string]Event{
	"queued":      None,
	"initiated":   None,
	"ringing":     Ring,
	"in-progress": Answer,
	"answered":    Answer,
	"completed":   Hang,
	"busy":        Hang,
	"failed":      Hang,
	"no-answer":   Hang,
	"canceled":    Hang,
}

// EventForStatus maps a provider call status to an event.
func EventForStatus(status string) (Event, error) {
	ev, ok := statusEvents[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return None, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return ev, nil
}

// Transition returns the state reached from s on ev. Ended is terminal.
func Transition(s State, ev Event) (State, error) {
	switch {
	case ev == None:
		return s, nil
	case s == Ended:
	case ev == Hang:
		return Ended, nil
	case ev == Ring && s == Idle:
		return Ringing, nil
	case ev == Answer && (s == Idle || s == Ringing):
		return Connected, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s)
}
