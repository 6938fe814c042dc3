package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogSink writes every notification to the log. Useful on headless deployments.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink constructs a log sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) PlayWarningPulse(_ context.Context, stationID string) error {
	l.logger.Info().Str("station_id", stationID).Msg("warning pulse")
	return nil
}

func (l *LogSink) PlayFinishedAlarmPulse(_ context.Context, stationID string) error {
	l.logger.Debug().Str("station_id", stationID).Msg("finished alarm pulse")
	return nil
}

func (l *LogSink) PlayConfirmChime(_ context.Context, stationID string) error {
	l.logger.Debug().Str("station_id", stationID).Msg("confirm chime")
	return nil
}

func (l *LogSink) SendPersistentNotification(_ context.Context, title, body string) error {
	l.logger.Warn().Str("title", title).Str("body", body).Msg("persistent notification")
	return nil
}

func (l *LogSink) Vibrate(_ context.Context, pattern []time.Duration) error {
	l.logger.Debug().Int("steps", len(pattern)).Msg("vibrate")
	return nil
}
