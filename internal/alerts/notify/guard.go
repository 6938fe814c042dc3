package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"venue-timers/internal/observability/metrics"
)

// Guard wraps a sink so that errors and panics are logged and swallowed.
// All methods return nil.
type Guard struct {
	sink   Sink
	logger zerolog.Logger
}

// NewGuard wraps sink. A nil sink becomes a no-op.
func NewGuard(sink Sink, logger zerolog.Logger) *Guard {
	if sink == nil {
		sink = Base{}
	}
	return &Guard{sink: sink, logger: logger}
}

func (g *Guard) call(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			metrics.IncCollaboratorFailure(metrics.CollaboratorNotification)
			g.logger.Error().Err(err).Str("collaborator", metrics.CollaboratorNotification).Str("op", op).Msg("notification sink failed")
		}
		err = nil
	}()
	return fn()
}

// PlayWarningPulse implements Sink.
func (g *Guard) PlayWarningPulse(ctx context.Context, stationID string) error {
	return g.call("warning_pulse", func() error { return g.sink.PlayWarningPulse(ctx, stationID) })
}

// PlayFinishedAlarmPulse implements Sink.
func (g *Guard) PlayFinishedAlarmPulse(ctx context.Context, stationID string) error {
	return g.call("finished_pulse", func() error { return g.sink.PlayFinishedAlarmPulse(ctx, stationID) })
}

// PlayConfirmChime implements Sink.
func (g *Guard) PlayConfirmChime(ctx context.Context, stationID string) error {
	return g.call("confirm_chime", func() error { return g.sink.PlayConfirmChime(ctx, stationID) })
}

// SendPersistentNotification implements Sink.
func (g *Guard) SendPersistentNotification(ctx context.Context, title, body string) error {
	return g.call("persistent_notification", func() error { return g.sink.SendPersistentNotification(ctx, title, body) })
}

// Vibrate implements Sink.
func (g *Guard) Vibrate(ctx context.Context, pattern []time.Duration) error {
	return g.call("vibrate", func() error { return g.sink.Vibrate(ctx, pattern) })
}

// SetIndicator implements IndicatorSink when the wrapped sink does.
func (g *Guard) SetIndicator(ctx context.Context, stationID, kind string, on bool) error {
	ind, ok := g.sink.(IndicatorSink)
	if !ok {
		return nil
	}
	return g.call("indicator", func() error { return ind.SetIndicator(ctx, stationID, kind, on) })
}
