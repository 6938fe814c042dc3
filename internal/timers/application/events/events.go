package events

import "time"

// StatusChanged is raised once per status change of a station timer.
type StatusChanged struct {
	StationID   string    `json:"station_id"`
	SessionID   string    `json:"session_id,omitempty"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	RemainingMs int64     `json:"remaining_ms"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// SessionStarted is raised when a paid session starts.
type SessionStarted struct {
	StationID   string    `json:"station_id"`
	StationName string    `json:"station_name"`
	SessionID   string    `json:"session_id"`
	PaymentKind string    `json:"payment_kind"`
	Amount      float64   `json:"amount"`
	Minutes     int       `json:"minutes"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// SessionExtended is raised when paid time is added to a session.
type SessionExtended struct {
	StationID   string    `json:"station_id"`
	StationName string    `json:"station_name"`
	SessionID   string    `json:"session_id"`
	PaymentKind string    `json:"payment_kind"`
	Amount      float64   `json:"amount"`
	Minutes     int       `json:"minutes"`
	RemainingMs int64     `json:"remaining_ms"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// TimerAdjusted is raised after an admin correction.
type TimerAdjusted struct {
	StationID   string    `json:"station_id"`
	SessionID   string    `json:"session_id"`
	DeltaMs     int64     `json:"delta_ms"`
	RemainingMs int64     `json:"remaining_ms"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// SessionStopped is raised when the operator ends a session.
type SessionStopped struct {
	StationID   string    `json:"station_id"`
	SessionID   string    `json:"session_id"`
	RemainingMs int64     `json:"remaining_ms"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// SessionReset is raised when a stopped station returns to idle.
type SessionReset struct {
	StationID  string    `json:"station_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OvertimeFinalized is raised when an extension pays off accrued overtime.
// Seq is the extension number within the session.
type OvertimeFinalized struct {
	StationID   string    `json:"station_id"`
	SessionID   string    `json:"session_id"`
	RemainingMs int64     `json:"remaining_ms"`
	Seq         int       `json:"seq"`
	OccurredAt  time.Time `json:"occurred_at"`
}
