package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"venue-timers/internal/eventing"
	"venue-timers/internal/observability/metrics"
	overtime "venue-timers/internal/overtime/domain"
	stations "venue-timers/internal/stations/domain"
	"venue-timers/internal/timers/application/events"
)

const defaultSeenTTL = 48 * time.Hour

// Store is the daily statistics collaborator. AppendOvertime returns
// overtime.ErrDuplicate when the key was already stored.
type Store interface {
	AppendOvertime(ctx context.Context, rec overtime.Record) error
	ListByPeriod(ctx context.Context, periodKey string) ([]overtime.Record, error)
}

// StationReader resolves display names.
type StationReader interface {
	Get(id string) (stations.Station, error)
}

// Tracker turns negative remaining time into overtime records, at most once per key.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]time.Time

	store        Store
	stations     StationReader
	clock        clockwork.Clock
	logger       zerolog.Logger
	dayStartHour int
	loc          *time.Location
	ttl          time.Duration
}

// Option customizes the tracker.
type Option func(*Tracker)

// WithClock assigns a clock.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithDayStart sets the local hour and zone at which a statistics day begins.
func WithDayStart(hour int, loc *time.Location) Option {
	return func(t *Tracker) {
		if hour >= 0 && hour < 24 {
			t.dayStartHour = hour
		}
		if loc != nil {
			t.loc = loc
		}
	}
}

// NewTracker constructs a tracker.
func NewTracker(store Store, reader StationReader, opts ...Option) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("overtime: nil store")
	}
	if reader == nil {
		return nil, errors.New("overtime: nil station reader")
	}
	t := &Tracker{
		seen:     make(map[string]time.Time),
		store:    store,
		stations: reader,
		clock:    clockwork.NewRealClock(),
		logger:   zerolog.Nop(),
		loc:      time.Local,
		ttl:      defaultSeenTTL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Register records overtime paid off by extensions.
func (t *Tracker) Register(bus eventing.Bus) {
	eventing.Subscribe(bus, func(ctx context.Context, evt events.OvertimeFinalized) error {
		key := fmt.Sprintf("%s/%s/%d", evt.SessionID, overtime.SourceExtend, evt.Seq)
		t.record(ctx, key, evt.StationID, evt.SessionID, evt.RemainingMs, overtime.SourceExtend)
		return nil
	})
}

// RecordIfOvertime appends a record when remainingMs is negative. The key
// identifies the closeout; repeated keys are ignored. Store failures are
// logged and leave the key free for a retry.
func (t *Tracker) RecordIfOvertime(ctx context.Context, key, stationID string, remainingMs int64) (overtime.Record, bool) {
	return t.record(ctx, key, stationID, key, remainingMs, overtime.SourceCloseout)
}

// Period returns the statistics period for now.
func (t *Tracker) Period() overtime.Period {
	return overtime.PeriodFor(t.clock.Now(), t.dayStartHour, t.loc)
}

// Summary loads a period's records. An empty key means the current period.
func (t *Tracker) Summary(ctx context.Context, periodKey string) (overtime.Summary, error) {
	if periodKey == "" {
		periodKey = t.Period().Key
	} else if _, err := overtime.ParsePeriod(periodKey, t.dayStartHour, t.loc); err != nil {
		return overtime.Summary{}, err
	}
	records, err := t.store.ListByPeriod(ctx, periodKey)
	if err != nil {
		return overtime.Summary{}, fmt.Errorf("overtime: list %s: %w", periodKey, err)
	}
	return overtime.Summarize(periodKey, records), nil
}

func (t *Tracker) record(ctx context.Context, key, stationID, sessionID string, remainingMs int64, source overtime.Source) (overtime.Record, bool) {
	minutes := overtime.MinutesOver(remainingMs)
	if minutes == 0 || key == "" {
		return overtime.Record{}, false
	}
	now := t.clock.Now()
	if !t.claim(key, now) {
		return overtime.Record{}, false
	}

	name := stationID
	if st, err := t.stations.Get(stationID); err == nil {
		name = st.Name
	}
	rec := overtime.Record{
		Key:             key,
		StationID:       stationID,
		StationName:     name,
		SessionID:       sessionID,
		OvertimeMinutes: minutes,
		Source:          source,
		Timestamp:       now,
		PeriodKey:       overtime.PeriodFor(now, t.dayStartHour, t.loc).Key,
	}
	if err := t.store.AppendOvertime(ctx, rec); err != nil {
		if errors.Is(err, overtime.ErrDuplicate) {
			return overtime.Record{}, false
		}
		t.release(key)
		metrics.IncCollaboratorFailure(metrics.CollaboratorStats)
		t.logger.Error().Err(err).Str("collaborator", metrics.CollaboratorStats).Str("station_id", stationID).Str("key", key).Msg("append overtime failed")
		return overtime.Record{}, false
	}
	metrics.AddOvertimeMinutes(minutes)
	return rec, true
}

func (t *Tracker) claim(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, at := range t.seen {
		if now.Sub(at) > t.ttl {
			delete(t.seen, k)
		}
	}
	if _, ok := t.seen[key]; ok {
		return false
	}
	t.seen[key] = now
	return true
}

func (t *Tracker) release(key string) {
	t.mu.Lock()
	delete(t.seen, key)
	t.mu.Unlock()
}
