package alerts

import (
	"time"
)

// Phase is the per-station alarm state.
type Phase string

const (
	PhaseSilent   Phase = "silent"
	PhaseWarning  Phase = "warning"
	PhaseFinished Phase = "finished"
)

// PhaseFor maps a timer status to the alarm phase it drives. Statuses that
// leave the alarm untouched (stopped) report false.
func PhaseFor(status string) (Phase, bool) {
	switch status {
	case "warning":
		return PhaseWarning, true
	case "finished":
		return PhaseFinished, true
	case "running", "idle":
		return PhaseSilent, true
	default:
		return "", false
	}
}

// Vibration patterns alternate on/off durations.
var (
	WarningVibration  = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
	FinishedVibration = []time.Duration{500 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond}
)

// AlarmView is a read-only snapshot of an active alarm.
type AlarmView struct {
	StationID          string    `json:"station_id"`
	StationName        string    `json:"station_name"`
	Kind               Phase     `json:"kind"`
	Active             bool      `json:"active"`
	StartedAt          time.Time `json:"started_at"`
	LastFiredAtEpochMs int64     `json:"last_fired_at_epoch_ms"`
	Pulses             int64     `json:"pulses"`
}
