package payments

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Reason says why a payment was taken.
type Reason string

const (
	ReasonStart  Reason = "start"
	ReasonExtend Reason = "extend"
)

// ErrInvalidPayment reports a payment without station or kind.
var ErrInvalidPayment = errors.New("payments: invalid payment")

// Payment is one point-of-sale entry for a session.
type Payment struct {
	StationID   string  `json:"station_id"`
	StationName string  `json:"station_name,omitempty"`
	SessionID   string  `json:"session_id"`
	Kind        string  `json:"payment_kind"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Minutes     int     `json:"minutes"`
	Reason      Reason  `json:"reason"`
}

// Validate checks required fields.
func (p Payment) Validate() error {
	if p.StationID == "" || p.Kind == "" || p.Reason == "" {
		return ErrInvalidPayment
	}
	if p.Amount < 0 || p.Minutes < 0 {
		return ErrInvalidPayment
	}
	return nil
}

// Recorder is the payment/POS collaborator.
type Recorder interface {
	Record(ctx context.Context, payment Payment) error
}

// LogRecorder writes payments to the log. Used when no broker is configured.
type LogRecorder struct {
	logger zerolog.Logger
}

// NewLogRecorder constructs a LogRecorder.
func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record logs the payment.
func (r *LogRecorder) Record(_ context.Context, payment Payment) error {
	if err := payment.Validate(); err != nil {
		return err
	}
	r.logger.Info().
		Str("station_id", payment.StationID).
		Str("session_id", payment.SessionID).
		Str("payment_kind", payment.Kind).
		Float64("amount", payment.Amount).
		Int("minutes", payment.Minutes).
		Str("reason", string(payment.Reason)).
		Msg("payment recorded")
	return nil
}
