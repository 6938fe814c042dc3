package notify

import (
	"context"
	"time"
)

// Sink is where alarm pulses and notifications end up (speaker, OS toast, push).
type Sink interface {
	PlayWarningPulse(ctx context.Context, stationID string) error
	PlayFinishedAlarmPulse(ctx context.Context, stationID string) error
	PlayConfirmChime(ctx context.Context, stationID string) error
	SendPersistentNotification(ctx context.Context, title, body string) error
	Vibrate(ctx context.Context, pattern []time.Duration) error
}

// IndicatorSink shows a persistent visual indicator, such as a flashing title,
// while a station alarms.
type IndicatorSink interface {
	SetIndicator(ctx context.Context, stationID, kind string, on bool) error
}

// Base implements Sink with no-ops. Embed it to implement a subset.
type Base struct{}

func (Base) PlayWarningPulse(context.Context, string) error { return nil }
func (Base) PlayFinishedAlarmPulse(context.Context, string) error { return nil }
func (Base) PlayConfirmChime(context.Context, string) error { return nil }
func (Base) SendPersistentNotification(context.Context, string, string) error { return nil }
func (Base) Vibrate(context.Context, []time.Duration) error { return nil }
