package timers

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an action is not permitted from the current status.
	ErrInvalidTransition = errors.New("timer: invalid transition")
	// ErrInvalidInput is returned for out-of-range minutes or malformed values.
	ErrInvalidInput = errors.New("timer: invalid input")
	// ErrUnauthorizedAdjustment is returned when adjust is called without admin authorization.
	ErrUnauthorizedAdjustment = errors.New("timer: adjustment not authorized")
	// ErrUnknownStation is returned for station ids outside the catalog.
	ErrUnknownStation = errors.New("timer: unknown station")
	// ErrNoDuration is returned when start is called before a duration is booked.
	ErrNoDuration = errors.New("timer: no duration booked")
)

// TransitionError describes a rejected action.
type TransitionError struct {
	Action    Action
	StationID string
	From      Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("timer: %s not allowed for station %s in status %s", e.Action, e.StationID, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
