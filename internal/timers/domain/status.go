package timers

import "fmt"

// Status is the lifecycle status of a station timer.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusWarning  Status = "warning"
	StatusFinished Status = "finished"
	StatusStopped  Status = "stopped"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusWarning, StatusFinished, StatusStopped:
		return true
	default:
		return false
	}
}

// Active reports whether the timer is counting down.
func (s Status) Active() bool {
	switch s {
	case StatusRunning, StatusWarning, StatusFinished:
		return true
	default:
		return false
	}
}

// Action is an operation applied to a timer.
type Action string

const (
	ActionSetDuration Action = "set_duration"
	ActionStart       Action = "start"
	ActionExtend      Action = "extend"
	ActionAdjust      Action = "adjust"
	ActionTick        Action = "tick"
	ActionStop        Action = "stop"
	ActionReset       Action = "reset"
)

// CheckAction is the single place that decides whether an action may be
// applied from a status.
func CheckAction(from Status, action Action) bool {
	switch action {
	case ActionSetDuration:
		return from == StatusIdle
	case ActionStart:
		return from == StatusIdle || from == StatusStopped
	case ActionExtend, ActionAdjust, ActionTick, ActionStop:
		return from.Active()
	case ActionReset:
		return from == StatusStopped
	default:
		return false
	}
}

// Evaluate derives the status of an active timer from its remaining time.
func Evaluate(remainingMs, warningMs int64) Status {
	switch {
	case remainingMs <= 0:
		return StatusFinished
	case remainingMs <= warningMs:
		return StatusWarning
	default:
		return StatusRunning
	}
}

// ParseStatus parses a persisted status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: status %q", ErrInvalidInput, raw)
	}
	return s, nil
}
