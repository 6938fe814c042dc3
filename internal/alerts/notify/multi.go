package notify

import (
	"context"
	"errors"
	"time"
)

// Multi dispatches to multiple sinks. Every sink is called; errors are joined.
type Multi struct {
	sinks []Sink
}

// NewMulti constructs a Multi, skipping nil sinks.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, sink := range sinks {
		if sink != nil {
			m.sinks = append(m.sinks, sink)
		}
	}
	return m
}

func (m *Multi) each(fn func(Sink) error) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, sink := range m.sinks {
		if err := fn(sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PlayWarningPulse implements Sink.
func (m *Multi) PlayWarningPulse(ctx context.Context, stationID string) error {
	return m.each(func(s Sink) error { return s.PlayWarningPulse(ctx, stationID) })
}

// PlayFinishedAlarmPulse implements Sink.
func (m *Multi) PlayFinishedAlarmPulse(ctx context.Context, stationID string) error {
	return m.each(func(s Sink) error { return s.PlayFinishedAlarmPulse(ctx, stationID) })
}

// PlayConfirmChime implements Sink.
func (m *Multi) PlayConfirmChime(ctx context.Context, stationID string) error {
	return m.each(func(s Sink) error { return s.PlayConfirmChime(ctx, stationID) })
}

// SendPersistentNotification implements Sink.
func (m *Multi) SendPersistentNotification(ctx context.Context, title, body string) error {
	return m.each(func(s Sink) error { return s.SendPersistentNotification(ctx, title, body) })
}

// Vibrate implements Sink.
func (m *Multi) Vibrate(ctx context.Context, pattern []time.Duration) error {
	return m.each(func(s Sink) error { return s.Vibrate(ctx, pattern) })
}

// SetIndicator forwards to the sinks that show indicators.
func (m *Multi) SetIndicator(ctx context.Context, stationID, kind string, on bool) error {
	return m.each(func(s Sink) error {
		if ind, ok := s.(IndicatorSink); ok {
			return ind.SetIndicator(ctx, stationID, kind, on)
		}
		return nil
	})
}
