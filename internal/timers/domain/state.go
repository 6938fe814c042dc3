package timers

import (
	"fmt"
	"math"
	"strings"
)

const (
	// MsPerMinute converts user minute inputs to milliseconds.
	MsPerMinute int64 = 60_000
	// DefaultWarningThresholdMs is the remaining time at which a timer enters warning.
	DefaultWarningThresholdMs int64 = 5 * MsPerMinute
	// MaxMinutes bounds a single booking, extension or adjustment to one day.
	MaxMinutes = 24 * 60
)

// ValidateMinutes accepts 1..MaxMinutes.
func ValidateMinutes(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: minutes must be positive", ErrInvalidInput)
	}
	if minutes > MaxMinutes {
		return fmt.Errorf("%w: minutes must not exceed %d", ErrInvalidInput, MaxMinutes)
	}
	return nil
}

// PaymentKind is how a session or extension was paid.
type PaymentKind string

const (
	PaymentCash     PaymentKind = "cash"
	PaymentCard     PaymentKind = "card"
	PaymentTransfer PaymentKind = "transfer"
	PaymentDeferred PaymentKind = "deferred"
	// PaymentPrepaid marks a session promoted from the queue; it was paid at admission.
	PaymentPrepaid PaymentKind = "prepaid"
)

// ParsePaymentKind validates a caller-supplied payment kind. Empty defaults to cash.
func ParsePaymentKind(raw string) (PaymentKind, error) {
	switch kind := PaymentKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case "":
		return PaymentCash, nil
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentDeferred, PaymentPrepaid:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: payment kind %q", ErrInvalidInput, raw)
	}
}

// TimerState is the mutable per-station timer.
type TimerState struct {
	StationID        string  `json:"station_id" cbor:"1,keyasint"`
	Status           Status  `json:"status" cbor:"2,keyasint"`
	DurationMs       int64   `json:"duration_ms" cbor:"3,keyasint"`
	RemainingMs      int64   `json:"remaining_ms" cbor:"4,keyasint"`
	StartedAtEpochMs *int64  `json:"started_at_epoch_ms,omitempty" cbor:"5,keyasint,omitempty"`
	PaidAmount       float64 `json:"paid_amount" cbor:"6,keyasint"`
	UnpaidAmount     float64 `json:"unpaid_amount" cbor:"7,keyasint"`
	SessionID        string  `json:"session_id,omitempty" cbor:"8,keyasint,omitempty"`
	Extensions       int     `json:"extensions" cbor:"9,keyasint"`
}

// NewIdleState returns the initial state of a station.
func NewIdleState(stationID string) TimerState {
	return TimerState{StationID: stationID, Status: StatusIdle}
}

// Clone returns a deep copy.
func (s TimerState) Clone() TimerState {
	out := s
	if s.StartedAtEpochMs != nil {
		v := *s.StartedAtEpochMs
		out.StartedAtEpochMs = &v
	}
	return out
}

// OvertimeMs is max(0, -remaining).
func (s TimerState) OvertimeMs() int64 {
	if s.RemainingMs >= 0 {
		return 0
	}
	return -s.RemainingMs
}

// Validate checks a loaded state before it is adopted.
func (s TimerState) Validate() error {
	if strings.TrimSpace(s.StationID) == "" {
		return fmt.Errorf("%w: station id is required", ErrInvalidInput)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, s.Status)
	}
	if s.DurationMs < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidInput)
	}
	return nil
}

// Credit books an amount against the session.
func (s *TimerState) Credit(kind PaymentKind, amount float64) {
	if kind == PaymentDeferred {
		s.UnpaidAmount = RoundCents(s.UnpaidAmount + amount)
		return
	}
	s.PaidAmount = RoundCents(s.PaidAmount + amount)
}

// Charge prices minutes at an hourly rate.
func Charge(ratePerHour float64, minutes int) float64 {
	if ratePerHour <= 0 || minutes <= 0 {
		return 0
	}
	return RoundCents(ratePerHour * float64(minutes) / 60)
}

// RoundCents rounds to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
